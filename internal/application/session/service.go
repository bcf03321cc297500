package session

import (
	"fmt"
	"sync"

	"github.com/edudash-core/internal/domain"
	jwtinfra "github.com/edudash-core/internal/infrastructure/jwt"
)

// decoder extracts typed claims from a bearer token.
type decoder interface {
	Decode(tokenStr string) (*jwtinfra.Claims, error)
}

// Service is the single place bearer credentials are decoded. Every page of
// the dashboard asks this service for claims instead of re-parsing the token
// itself; results are cached per token string.
type Service struct {
	provider decoder

	mu    sync.RWMutex
	cache map[string]*jwtinfra.Claims
}

func NewService(provider decoder) *Service {
	return &Service{provider: provider, cache: make(map[string]*jwtinfra.Claims)}
}

// Claims returns the decoded claims for a token, decoding at most once per
// distinct token string.
func (s *Service) Claims(token string) (*jwtinfra.Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("no credential: %w", domain.ErrUnauthorized)
	}
	s.mu.RLock()
	if c, ok := s.cache[token]; ok {
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	c, err := s.provider.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("decode credential: %w", domain.ErrUnauthorized)
	}
	s.mu.Lock()
	s.cache[token] = c
	s.mu.Unlock()
	return c, nil
}

// Role returns the role claim, empty when the token cannot be decoded.
func (s *Service) Role(token string) string {
	c, err := s.Claims(token)
	if err != nil {
		return ""
	}
	return c.Role
}

// DisplayName returns the operator's name claim, falling back to the user id.
func (s *Service) DisplayName(token string) string {
	c, err := s.Claims(token)
	if err != nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	return c.UserID
}
