package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hirelens/hirelens-backend/internal/config"
)

// ErrSessionAlreadyActive is returned when a candidate already holds a
// live session. Only one session per candidate may run at a time.
var ErrSessionAlreadyActive = errors.New("another session is already active for this candidate")

// Claims extends JWT standard claims with session-scoped fields.
type Claims struct {
	jwt.RegisteredClaims
	CandidateEmail string `json:"candidate_email,omitempty"`
	CandidateName  string `json:"candidate_name,omitempty"`
	SessionID      string `json:"session_id"`
}

// TokenService issues and validates session-scoped candidate tokens.
type TokenService struct {
	cfg *config.Config
	rdb *redis.Client
}

// NewTokenService creates a new TokenService.
func NewTokenService(cfg *config.Config, rdb *redis.Client) *TokenService {
	return &TokenService{cfg: cfg, rdb: rdb}
}

// Issue creates a JWT bound to one session and, for identified candidates,
// registers the session as the candidate's active one in Redis. A second
// start while a session is live is rejected.
func (s *TokenService) Issue(ctx context.Context, email, name string, sessionID uuid.UUID) (string, error) {
	if email != "" {
		lockKey := config.CacheKey.CandidateActiveSessionKey(email)

		existing, err := s.rdb.Get(ctx, lockKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("check active session: %w", err)
		}
		if existing != "" && existing != sessionID.String() {
			return "", ErrSessionAlreadyActive
		}

		if err := s.rdb.Set(ctx, lockKey, sessionID.String(), s.cfg.JWTExpiry).Err(); err != nil {
			return "", fmt.Errorf("store active session: %w", err)
		}
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		CandidateEmail: email,
		CandidateName:  name,
		SessionID:      sessionID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and validates a JWT, returning the claims.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ReleaseSession clears the candidate's active-session lock so a new
// session may start. Called after submission completes.
func (s *TokenService) ReleaseSession(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	return s.rdb.Del(ctx, config.CacheKey.CandidateActiveSessionKey(email)).Err()
}
