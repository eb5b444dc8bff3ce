package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/unsentboard/unsent-backend/internal/common"
)

const (
	sessionKeyPrefix = "admin:session:"
	stepUpTTL        = 5 * time.Minute

	// loginFailureDelay blunts credential brute forcing
	loginFailureDelay = time.Second
)

// AuthConfig holds admin credentials and token settings. All values come
// from config/env; there are no source-constant passwords.
type AuthConfig struct {
	Username      string
	PasswordHash  string // bcrypt
	StepUpSecret  string
	SessionMaxAge time.Duration
}

type session struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService manages admin sessions (opaque token, server-side state) and
// short-lived step-up tokens required for destructive actions. Sessions live
// in Redis when available, with an in-memory fallback map otherwise.
type AuthService struct {
	cfg AuthConfig
	rdb *redis.Client

	mu       sync.Mutex
	sessions map[string]session

	now   func() time.Time
	sleep func(time.Duration)
}

// NewAuthService creates an AuthService. rdb may be nil.
func NewAuthService(cfg AuthConfig, rdb *redis.Client) *AuthService {
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 365 * 24 * time.Hour
	}
	return &AuthService{
		cfg:      cfg,
		rdb:      rdb,
		sessions: make(map[string]session),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// SessionMaxAge exposes the configured session lifetime (for cookie Max-Age)
func (s *AuthService) SessionMaxAge() time.Duration {
	return s.cfg.SessionMaxAge
}

// Login verifies credentials and issues an opaque session token. Failures
// pay a fixed delay before returning.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if username != s.cfg.Username || bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)) != nil {
		s.sleep(loginFailureDelay)
		return "", common.ErrInvalidCredentials
	}

	token := uuid.NewString()
	sess := session{Username: username, ExpiresAt: s.now().Add(s.cfg.SessionMaxAge)}
	s.storeSession(ctx, token, sess)
	return token, nil
}

// Check reports whether the token maps to a live session
func (s *AuthService) Check(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	sess, ok := s.loadSession(ctx, token)
	return ok && sess.ExpiresAt.After(s.now())
}

// Logout drops the session
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if s.rdb != nil {
		_ = s.rdb.Del(ctx, sessionKeyPrefix+token).Err()
	}
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// StepUp re-verifies the password for an authenticated session and returns a
// short-lived confirmation token. Destructive admin actions require it; this
// is the server-verified replacement for re-prompting a shared action
// password on every operation.
func (s *AuthService) StepUp(ctx context.Context, sessionToken, password string) (string, error) {
	if !s.Check(ctx, sessionToken) {
		return "", common.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)) != nil {
		s.sleep(loginFailureDelay)
		return "", common.ErrInvalidCredentials
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   s.cfg.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stepUpTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.StepUpSecret))
	if err != nil {
		return "", fmt.Errorf("sign step-up token: %w", err)
	}
	return signed, nil
}

// VerifyStepUp validates a confirmation token
func (s *AuthService) VerifyStepUp(tokenString string) error {
	if tokenString == "" {
		return common.ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.StepUpSecret), nil
	})
	if err != nil || !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}

func (s *AuthService) storeSession(ctx context.Context, token string, sess session) {
	if s.rdb != nil {
		if data, err := json.Marshal(sess); err == nil {
			if s.rdb.Set(ctx, sessionKeyPrefix+token, data, s.cfg.SessionMaxAge).Err() == nil {
				return
			}
		}
	}
	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()
}

func (s *AuthService) loadSession(ctx context.Context, token string) (session, bool) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Bytes()
		if err == nil {
			var sess session
			if json.Unmarshal(data, &sess) == nil {
				return sess, true
			}
		}
	}
	s.mu.Lock()
	sess, ok := s.sessions[token]
	s.mu.Unlock()
	return sess, ok
}
