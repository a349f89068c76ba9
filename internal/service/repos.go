package service

import (
	"context"
	"time"

	"github.com/GoPolymarket/unifygate/internal/model"
)

// Storage ports. Each has a Postgres implementation in repository and an in-memory
// fallback in this package (Postgres > Memory, Redis > Memory).

type InstallationRepo interface {
	Create(ctx context.Context, inst *model.Installation) error
	Get(ctx context.Context, userID, installationID string) (*model.Installation, error)
	List(ctx context.Context, userID string) ([]*model.Installation, error)
}

type CallRepo interface {
	Insert(ctx context.Context, rec *model.CallRecord) error
	List(ctx context.Context, q model.CallQuery) ([]*model.CallRecord, error)
}

type LiveConnectionRepo interface {
	Upsert(ctx context.Context, conn *model.LiveConnection) error
	Get(ctx context.Context, userID, installationID string) (*model.LiveConnection, error)
}

type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// CallPublisher mirrors call records to a stream after they are stored.
type CallPublisher interface {
	Publish(ctx context.Context, rec *model.CallRecord) error
}

const persistTimeout = 5 * time.Second

// persistContext keeps ctx values but not its cancellation, so bookkeeping writes
// finish after the client has gone away.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}
