package ports

import (
	"context"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// IdentityStore persists the operator identity across page loads.
type IdentityStore interface {
	// Load returns the stored identity. Missing keys come back empty, not as an error.
	Load(ctx context.Context) (domain.Identity, error)
	Save(ctx context.Context, id domain.Identity) error
}
