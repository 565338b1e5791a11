package accounting

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Privileges understood by the engine.
const (
	PrivilegeHR           = "hr"
	PrivilegeSales        = "sales"
	PrivilegeShiftplanner = "shiftplanner"
)

// Unauthenticated is recorded as creator when no user is known.
const Unauthenticated = "Unauthenticated"

// AuthContext identifies the caller of an engine entry point. It is passed
// explicitly; the engine never reads ambient request state.
type AuthContext struct {
	UserID        string
	SalesPersonID *uuid.UUID
	Privileges    []string

	// Full marks trusted internal callers (scheduler jobs) that skip checks.
	Full bool
}

// SystemContext is used by background jobs.
func SystemContext() AuthContext {
	return AuthContext{UserID: "system", Full: true}
}

func (a AuthContext) HasPrivilege(p string) bool { return slices.Contains(a.Privileges, p) }

// Actor is the name stored in created_by/deleted_by columns.
func (a AuthContext) Actor() string {
	if a.UserID == "" {
		return Unauthenticated
	}
	return a.UserID
}

// Authorizer is the yes/no gate consulted before any computation.
type Authorizer interface {
	IsHR(ctx context.Context, auth AuthContext) (bool, error)
	IsSelf(ctx context.Context, auth AuthContext, salesPersonID uuid.UUID) (bool, error)
}

// PrivilegeAuthorizer decides from the privileges and the sales-person
// binding carried by the AuthContext.
type PrivilegeAuthorizer struct{}

func (PrivilegeAuthorizer) IsHR(_ context.Context, auth AuthContext) (bool, error) {
	return auth.Full || auth.HasPrivilege(PrivilegeHR), nil
}

func (PrivilegeAuthorizer) IsSelf(_ context.Context, auth AuthContext, salesPersonID uuid.UUID) (bool, error) {
	if auth.Full {
		return true, nil
	}
	return auth.SalesPersonID != nil && *auth.SalesPersonID == salesPersonID, nil
}

// RequireHR fails with ErrForbidden unless the caller is HR.
func RequireHR(ctx context.Context, authz Authorizer, auth AuthContext) error {
	ok, err := authz.IsHR(ctx, auth)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// RequireHROrSelf fails with ErrForbidden unless the caller is HR or the
// sales person itself.
func RequireHROrSelf(ctx context.Context, authz Authorizer, auth AuthContext, salesPersonID uuid.UUID) error {
	hr, err := authz.IsHR(ctx, auth)
	if err != nil {
		return err
	}
	if hr {
		return nil
	}
	self, err := authz.IsSelf(ctx, auth, salesPersonID)
	if err != nil {
		return err
	}
	if !self {
		return ErrForbidden
	}
	return nil
}
