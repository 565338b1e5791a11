/*
contract.go - Contract selection and weekly proration

CONTRACT SELECTOR:
  A contract matches a week iff (FromYear, FromWeek) <= (year, week) <=
  (ToYear, ToWeek). All matches are returned and their weights summed;
  overlapping contracts of one sales person are not rejected here.

WEIGHT FOR WEEK:
  1. Expand the workday mask; N = number of potential workdays.
  2. In the contract's first week keep days >= FromDayOfWeek, in its last
     week days <= ToDayOfWeek (both if first == last).
  3. Map the remaining days to dates of the ISO week.
  4. Keep only dates of the target calendar year (0 keeps all), or of the
     given date range for range reports.
  5. relation = remaining / N; expected hours and workdays per week are
     scaled by it.

EXAMPLE:
  40h Mon-Fri contract starting Wednesday of 2024-W10:
    week 10 keeps Wed, Thu, Fri -> 40 * 3/5 = 24h, 3 days, 3 workdays
*/
package accounting

import (
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/calendar"
)

// Weight is a contract's prorated contribution to one week.
type Weight struct {
	ExpectedHours   decimal.Decimal
	WorkableDays    int
	WorkdaysPerWeek decimal.Decimal
}

func (w Weight) Add(other Weight) Weight {
	return Weight{
		ExpectedHours:   w.ExpectedHours.Add(other.ExpectedHours),
		WorkableDays:    w.WorkableDays + other.WorkableDays,
		WorkdaysPerWeek: w.WorkdaysPerWeek.Add(other.WorkdaysPerWeek),
	}
}

// ContractsForWeek returns every contract whose validity window covers week.
func ContractsForWeek(contracts []WorkDetails, week calendar.Week) []WorkDetails {
	var matching []WorkDetails
	for _, c := range contracts {
		if c.CoversWeek(week) {
			matching = append(matching, c)
		}
	}
	return matching
}

// WeightForWeek prorates c for week, counting only days in targetYear.
// targetYear 0 counts the whole week.
func WeightForWeek(c WorkDetails, week calendar.Week, targetYear int) (Weight, error) {
	return weigh(c, week, func(d calendar.Date) bool {
		return targetYear == 0 || d.Year() == targetYear
	})
}

// WeightForWeekInRange prorates c for week, counting only days within r.
func WeightForWeekInRange(c WorkDetails, week calendar.Week, r calendar.Range) (Weight, error) {
	return weigh(c, week, r.Contains)
}

func weigh(c WorkDetails, week calendar.Week, keep func(calendar.Date) bool) (Weight, error) {
	workdays := c.PotentialWeekdays()
	if len(workdays) == 0 || !c.CoversWeek(week) {
		return Weight{}, nil
	}

	first, last := week == c.FirstWeek(), week == c.LastWeek()
	remaining := 0
	for _, day := range workdays {
		if first && day < c.FromDayOfWeek {
			continue
		}
		if last && day > c.ToDayOfWeek {
			continue
		}
		date, err := week.Date(day)
		if err != nil {
			return Weight{}, calculationErr("weight for week "+week.String(), err)
		}
		if keep(date) {
			remaining++
		}
	}

	n := decimal.NewFromInt(int64(len(workdays)))
	count := decimal.NewFromInt(int64(remaining))
	return Weight{
		ExpectedHours:   c.ExpectedHours.Mul(count).Div(n),
		WorkableDays:    remaining,
		WorkdaysPerWeek: decimal.NewFromInt(int64(c.WorkdaysPerWeek)).Mul(count).Div(n),
	}, nil
}
