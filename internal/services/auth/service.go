package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/triviapool/internal/dependencies/clock"
	"github.com/mcoot/triviapool/internal/model"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// Session represents an authenticated administrator session
type Session struct {
	Token     string
	Address   model.Address
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service exchanges the administrator key for short-lived bearer tokens
type Service struct {
	admin   model.Address
	keyHash []byte
	clock   clock.Clock

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	// Admin is the account a successful login acts as
	Admin model.Address

	// AdminKeyHash is the bcrypt hash of the administrator key
	AdminKeyHash string

	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 12 * time.Hour,
	}
}

// New creates a new auth Service
func New(clock clock.Clock, cfg Config) (*Service, error) {
	if cfg.Admin.IsZero() {
		return nil, fmt.Errorf("admin account: %w", model.ErrZeroAddress)
	}
	if _, err := bcrypt.Cost([]byte(cfg.AdminKeyHash)); err != nil {
		return nil, fmt.Errorf("admin key hash: %w", err)
	}
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		admin:           cfg.Admin,
		keyHash:         []byte(cfg.AdminKeyHash),
		clock:           clock,
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
	}, nil
}

// HashKey returns the bcrypt hash to configure for an administrator key
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks the administrator key and creates a session
func (s *Service) Login(ctx context.Context, key string) (*Session, error) {
	if err := bcrypt.CompareHashAndPassword(s.keyHash, []byte(key)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.createSession(), nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// createSession creates a new administrator session
func (s *Service) createSession() *Session {
	token := s.generateToken("adm_")
	now := s.clock.Now()

	session := &Session{
		Token:     token,
		Address:   s.admin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	return session
}

// generateToken generates a random token with a prefix
func (s *Service) generateToken(prefix string) string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}
