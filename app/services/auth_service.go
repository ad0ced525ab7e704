package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"nestodo/app/models"
	"nestodo/app/notify"
	"nestodo/app/repository"
)

// AuthConfig tunes session issuing.
type AuthConfig struct {
	Secret     []byte
	SessionTTL time.Duration
	BcryptCost int
}

// AuthService handles accounts and JWT sessions.
type AuthService struct {
	users    repository.UserRepository
	notifier notify.Notifier
	cfg      AuthConfig
	now      func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(users repository.UserRepository, notifier notify.Notifier, cfg AuthConfig) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:    users,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		revoked:  make(map[string]time.Time),
	}
}

// Signup creates an account and sends the welcome notification in the
// background.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (models.User, error) {
	email = strings.TrimSpace(email)
	if err := ValidateSignup(email, password); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrAccountExists
		}
		return models.User{}, err
	}

	notify.Dispatch(s.notifier, user.Email, user.Name, notify.DefaultTimeout)
	return user, nil
}

// Login checks credentials and issues a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.Session, error) {
	email = strings.TrimSpace(email)
	if err := ValidateLogin(email, password); err != nil {
		return models.Session{}, err
	}

	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.Session{}, ErrInvalidCredentials
	}

	now := s.now()
	expires := now.Add(s.cfg.SessionTTL)
	claims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return models.Session{}, fmt.Errorf("sign token: %w", err)
	}
	return models.Session{Token: token, User: user, ExpiresAt: expires.UTC()}, nil
}

func (s *AuthService) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUnauthenticated
	}
	claims, err := s.parse(token)
	if err != nil {
		return models.User{}, err
	}
	if s.isRevoked(claims.ID) {
		return models.User{}, ErrUnauthenticated
	}

	user, err := s.users.UserByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrUnauthenticated
	}
	return user, err
}

// Logout revokes the session token until it would have expired anyway.
func (s *AuthService) Logout(token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

func (s *AuthService) isRevoked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}
