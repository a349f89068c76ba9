package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GoPolymarket/unifygate/internal/config"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
	"github.com/GoPolymarket/unifygate/internal/repository"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	sessionIssuer        = "unifygate"
	msgInvalidLogin      = "Invalid login credentials"
	msgUnauthorized      = "Unauthorized"
	defaultSessionSecret = 32
)

// ErrInvalidSession covers expired, revoked and badly signed tokens alike.
var ErrInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session is what a successful sign-in hands back to the caller.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.Identity
}

// AuthService signs dashboard users in and resolves session tokens to identities.
// Users are looked up in config-declared users first, then in the user store.
type AuthService struct {
	users       UserRepo
	static      *MemoryUserStore
	revocations RevocationStore
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
}

func NewAuthService(cfg config.AuthConfig, users UserRepo, revocations RevocationStore) (*AuthService, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, defaultSessionSecret)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn("auth.jwt_secret not set, using a random secret; sessions will not survive a restart")
	}
	if revocations == nil {
		revocations = NewMemoryRevocationStore()
	}

	static := NewMemoryUserStore()
	for _, uc := range cfg.Users {
		if strings.TrimSpace(uc.Email) == "" || uc.Password == "" {
			return nil, fmt.Errorf("auth.users: email and password are required")
		}
		u := &model.User{ID: uc.ID, Email: uc.Email}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if err := u.SetPassword(uc.Password); err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", uc.Email, err)
		}
		if err := static.Create(context.Background(), u); err != nil {
			return nil, fmt.Errorf("auth.users: %s: %w", uc.Email, err)
		}
	}

	return &AuthService{
		users:       users,
		static:      static,
		revocations: revocations,
		secret:      secret,
		ttl:         cfg.SessionTTL(),
		now:         time.Now,
	}, nil
}

func (s *AuthService) findUser(ctx context.Context, email string) (*model.User, error) {
	u, err := s.static.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if s.users == nil {
		return nil, repository.ErrNotFound
	}
	return s.users.GetByEmail(ctx, email)
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewInvalidRequest(msgInvalidLogin)
	}
	u, err := s.findUser(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidRequest(msgInvalidLogin)
		}
		return nil, apperrors.NewInternal(err)
	}
	if err := u.ComparePassword(password); err != nil {
		return nil, apperrors.NewInvalidRequest(msgInvalidLogin)
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return &Session{
		Token:     signed,
		ExpiresAt: expires,
		User:      &model.Identity{UserID: u.ID, Email: u.Email, SessionID: claims.ID, ExpiresAt: expires},
	}, nil
}

// Authenticate validates the token signature, expiry and revocation state.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	var claims sessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidSession
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidSession
	}
	return &model.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SignOut revokes the session until the moment it would have expired.
func (s *AuthService) SignOut(ctx context.Context, id *model.Identity) error {
	if id == nil || id.SessionID == "" {
		return apperrors.NewInvalidRequest(msgUnauthorized)
	}
	ttl := id.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, id.SessionID, ttl); err != nil {
		return apperrors.NewInternal(err)
	}
	return nil
}

// SessionTTL is how long issued tokens stay valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}
