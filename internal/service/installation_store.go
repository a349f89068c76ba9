package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/repository"
	"github.com/google/uuid"
)

// MemoryInstallationStore backs the credential store when no database is configured.
type MemoryInstallationStore struct {
	mu    sync.RWMutex
	items map[string]*model.Installation // Key: UserID + "/" + InstallationID
}

func NewMemoryInstallationStore() *MemoryInstallationStore {
	return &MemoryInstallationStore{items: make(map[string]*model.Installation)}
}

func ownerKey(userID, installationID string) string {
	return userID + "/" + installationID
}

func (s *MemoryInstallationStore) Create(ctx context.Context, inst *model.Installation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey(inst.UserID, inst.InstallationID)
	if _, exists := s.items[key]; exists {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	inst.CreatedAt, inst.UpdatedAt = now, now
	cp := *inst
	s.items[key] = &cp
	return nil
}

func (s *MemoryInstallationStore) Get(ctx context.Context, userID, installationID string) (*model.Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.items[ownerKey(userID, installationID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (s *MemoryInstallationStore) List(ctx context.Context, userID string) ([]*model.Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Installation, 0)
	for _, inst := range s.items {
		if inst.UserID != userID {
			continue
		}
		cp := *inst
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
