package service

import (
	"context"
	"sync"
	"time"

	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/repository"
	"github.com/google/uuid"
)

type MemoryLiveConnectionStore struct {
	mu    sync.RWMutex
	conns map[string]*model.LiveConnection // Key: UserID + "/" + InstallationID
}

func NewMemoryLiveConnectionStore() *MemoryLiveConnectionStore {
	return &MemoryLiveConnectionStore{conns: make(map[string]*model.LiveConnection)}
}

func (s *MemoryLiveConnectionStore) Upsert(ctx context.Context, conn *model.LiveConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey(conn.UserID, conn.InstallationID)
	if existing, ok := s.conns[key]; ok {
		existing.ConnectionURL = conn.ConnectionURL
		existing.Status = conn.Status
		existing.LastActivity = conn.LastActivity
		return nil
	}
	cp := *conn
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.conns[key] = &cp
	return nil
}

func (s *MemoryLiveConnectionStore) Get(ctx context.Context, userID, installationID string) (*model.LiveConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.conns[ownerKey(userID, installationID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *conn
	return &cp, nil
}
