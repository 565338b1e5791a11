package billing

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/accounting"
	"go.uber.org/zap"
)

// templateFuncs are available to every stored template.
//
//	{{ round .Delta 0 }}    decimal rounded to a fixed number of places
//	{{ hours .Values "overall" }}  delta of one value type, 0 if absent
var templateFuncs = template.FuncMap{
	"round": func(d decimal.Decimal, places int32) string { return d.StringFixed(places) },
	"hours": func(values []valueView, typ string) decimal.Decimal {
		for _, v := range values {
			if v.Type == typ {
				return v.Delta
			}
		}
		return decimal.Zero
	},
}

// reportView is the data a template renders:
//
//	{{ range .BillingPeriod.SalesPersons }}{{ .Name }}: {{ round (hours .Values "overall") 0 }}{{ end }}
type reportView struct {
	BillingPeriod periodView
}

type periodView struct {
	ID           string
	StartDate    string
	EndDate      string
	CreatedBy    string
	SalesPersons []personView
}

type personView struct {
	SalesPersonID string
	Name          string
	Values        []valueView
}

type valueView struct {
	Type     string
	Delta    decimal.Decimal
	YTDFrom  decimal.Decimal
	YTDTo    decimal.Decimal
	FullYear decimal.Decimal
}

// SaveTemplate validates and stores a text template.
func (s *Snapshotter) SaveTemplate(ctx context.Context, auth accounting.AuthContext, t TextTemplate) (*TextTemplate, error) {
	if err := accounting.RequireHR(ctx, s.authz, auth); err != nil {
		return nil, err
	}
	if _, err := template.New(t.Name).Funcs(templateFuncs).Parse(t.Body); err != nil {
		return nil, &accounting.InputError{Field: "template_text", Reason: err.Error()}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Version = uuid.New()
	t.CreatedAt = s.now().UTC()
	t.CreatedBy = auth.Actor()
	if err := s.repos.SaveTextTemplate(ctx, t); err != nil {
		return nil, accounting.WrapStorage("save text template", err)
	}
	return &t, nil
}

// CustomReport renders a stored billing period through a stored template.
func (s *Snapshotter) CustomReport(ctx context.Context, auth accounting.AuthContext, templateID, billingPeriodID uuid.UUID) (string, error) {
	if err := accounting.RequireHR(ctx, s.authz, auth); err != nil {
		return "", err
	}
	tt, err := s.repos.FindTextTemplate(ctx, templateID)
	if err != nil {
		return "", accounting.WrapStorage("load text template", err)
	}
	if tt == nil {
		return "", &accounting.NotFoundError{Entity: "text template", ID: templateID}
	}
	bp, err := s.find(ctx, billingPeriodID)
	if err != nil {
		return "", err
	}

	view, err := s.view(ctx, bp)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(tt.Name).Funcs(templateFuncs).Option("missingkey=zero").Parse(tt.Body)
	if err != nil {
		return "", &accounting.InputError{Field: "template_text", Reason: err.Error()}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateID, err)
	}

	s.log.Info("custom report rendered",
		zap.Stringer("template", templateID),
		zap.Stringer("billing_period", billingPeriodID),
		zap.Int("bytes", buf.Len()))
	return buf.String(), nil
}

func (s *Snapshotter) view(ctx context.Context, bp *BillingPeriod) (reportView, error) {
	pv := periodView{
		ID:        bp.ID.String(),
		StartDate: bp.StartDate.String(),
		EndDate:   bp.EndDate.String(),
		CreatedBy: bp.CreatedBy,
	}
	for _, sp := range bp.SalesPersons {
		person, err := s.repos.FindSalesPerson(ctx, sp.SalesPersonID)
		if err != nil {
			return reportView{}, accounting.WrapStorage("load sales person", err)
		}
		name := ""
		if person != nil {
			name = person.Name
		}
		p := personView{SalesPersonID: sp.SalesPersonID.String(), Name: name}
		for _, typ := range sp.ValueTypes() {
			v := sp.Values[typ]
			p.Values = append(p.Values, valueView{
				Type:     string(typ),
				Delta:    v.Delta,
				YTDFrom:  v.YTDFrom,
				YTDTo:    v.YTDTo,
				FullYear: v.FullYear,
			})
		}
		pv.SalesPersons = append(pv.SalesPersons, p)
	}
	return reportView{BillingPeriod: pv}, nil
}
