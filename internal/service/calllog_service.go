package service

import (
	"context"

	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
)

// CallLogService persists one record per upstream attempt and optionally mirrors it
// to a stream. Records are never updated or deleted.
type CallLogService struct {
	repo      CallRepo
	publisher CallPublisher
}

func NewCallLogService(repo CallRepo, publisher CallPublisher) *CallLogService {
	if repo == nil {
		repo = NewMemoryCallStore(1000)
	}
	return &CallLogService{repo: repo, publisher: publisher}
}

// Record stores rec before returning, even when ctx is already cancelled. A failed
// mirror publish is logged only.
func (s *CallLogService) Record(ctx context.Context, rec *model.CallRecord) error {
	ctx, cancel := persistContext(ctx)
	defer cancel()
	if err := s.repo.Insert(ctx, rec); err != nil {
		return err
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, rec); err != nil {
			logger.LogError(ctx, err, "publish call record",
				"user_id", rec.UserID, "installation_id", rec.InstallationID)
		}
	}
	return nil
}

func (s *CallLogService) List(ctx context.Context, q model.CallQuery) ([]*model.CallRecord, error) {
	return s.repo.List(ctx, q)
}
