package service

import (
	"context"
	"errors"
	"strings"

	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/pkg/secretbox"
	"github.com/GoPolymarket/unifygate/internal/repository"
)

const (
	msgMissingFields       = "Missing required fields"
	msgInstallationExists  = "Installation already exists for this user"
	msgInstallationMissing = "Installation not found"
)

// InstallationService owns the per-user credential store.
type InstallationService struct {
	repo InstallationRepo
	box  *secretbox.Box
}

func NewInstallationService(repo InstallationRepo, box *secretbox.Box) *InstallationService {
	if box == nil {
		box = &secretbox.Box{}
	}
	return &InstallationService{repo: repo, box: box}
}

// Create registers a new installation. The returned copy carries the plaintext token
// so callers can mask it; storage only ever sees the sealed form.
func (s *InstallationService) Create(ctx context.Context, userID string, req model.CreateInstallationRequest) (*model.Installation, error) {
	instID := strings.TrimSpace(req.InstallationID)
	name := strings.TrimSpace(req.InstallationName)
	token := strings.TrimSpace(req.UnifyAPIToken)
	if instID == "" || name == "" || token == "" {
		return nil, apperrors.NewInvalidRequest(msgMissingFields)
	}

	sealed, err := s.box.Seal(token)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	inst := &model.Installation{
		UserID:           userID,
		InstallationID:   instID,
		InstallationName: name,
		UnifyAPIToken:    sealed,
	}
	if err := s.repo.Create(ctx, inst); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict(msgInstallationExists)
		}
		return nil, apperrors.NewInternal(err)
	}
	out := *inst
	out.UnifyAPIToken = token
	return &out, nil
}

// List returns the caller's installations, newest first, with tokens opened.
func (s *InstallationService) List(ctx context.Context, userID string) ([]*model.Installation, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	for _, inst := range items {
		plain, err := s.box.Open(inst.UnifyAPIToken)
		if err != nil {
			// unreadable tokens are shown fully masked rather than failing the listing
			plain = ""
		}
		inst.UnifyAPIToken = plain
	}
	return items, nil
}

// Owns reports whether the installation belongs to the user.
func (s *InstallationService) Owns(ctx context.Context, userID, installationID string) (bool, error) {
	_, err := s.repo.Get(ctx, userID, installationID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, apperrors.NewInternal(err)
}

// Credential returns the plaintext Unify token stored for (userID, installationID).
func (s *InstallationService) Credential(ctx context.Context, userID, installationID string) (string, error) {
	inst, err := s.repo.Get(ctx, userID, installationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.NewNotFound(msgInstallationMissing)
		}
		return "", apperrors.NewInternal(err)
	}
	token, err := s.box.Open(inst.UnifyAPIToken)
	if err != nil {
		return "", apperrors.NewInternal(err)
	}
	return token, nil
}

// MaskToken keeps the first and last four characters.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
