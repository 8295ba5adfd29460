package directory

import (
	"context"

	"github.com/campuslink/chatd/internal/models"
)

// Directory resolves user identities. Identity issuance and the friend graph
// live in the wider platform; the messaging engine only reads existence and
// display names through this contract.
type Directory interface {
	// Lookup returns the user or nil when the id is unknown.
	Lookup(ctx context.Context, userID string) (*models.User, error)
	Ping(ctx context.Context) error
}
