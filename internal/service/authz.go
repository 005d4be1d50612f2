package service

import (
	"context"
	"errors"

	"github.com/kiiaren/kiiaren-server/internal/domain"
	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
	"github.com/kiiaren/kiiaren-server/internal/store"
)

// requireMember loads the caller's membership in the workspace, failing
// with a forbidden error when there is none.
func requireMember(ctx context.Context, st store.Memberships, workspaceID, userID string) (*domain.Membership, error) {
	m, err := st.GetMembership(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("you are not a member of this workspace")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load membership")
	}
	return m, nil
}

// requireAdmin extends requireMember, additionally demanding the admin
// role.
func requireAdmin(ctx context.Context, st store.Memberships, workspaceID, userID string) (*domain.Membership, error) {
	m, err := requireMember(ctx, st, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if !m.IsAdmin() {
		return nil, domainerrors.Forbidden("this action requires the workspace admin role")
	}
	return m, nil
}
