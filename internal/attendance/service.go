package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTokenNotFound means the Slack user has not registered an AKASHI token yet.
var ErrTokenNotFound = errors.New("attendance: token not registered")

// TokenStore is the part of the repository the service depends on.
type TokenStore interface {
	Fetch(ctx context.Context, userID string) (*UserToken, error)
	UpdateOrCreate(ctx context.Context, userID, token string, expiresAt *time.Time) (UserToken, error)
}

// StampAPI is the AKASHI surface used from the request path.
type StampAPI interface {
	FetchLastStamp(ctx context.Context, token string) (*Stamp, error)
	SubmitStamp(ctx context.Context, token string, code Code) (Stamp, error)
}

// Service coordinates token lookup, the AKASHI API and button selection.
type Service struct {
	tokens TokenStore
	api    StampAPI
}

// NewService creates a service backed by a token store and the AKASHI client.
func NewService(tokens TokenStore, api StampAPI) *Service {
	return &Service{tokens: tokens, api: api}
}

// Buttons returns the actions available to userID right now.
func (s *Service) Buttons(ctx context.Context, userID string) ([]Action, error) {
	token, err := s.token(ctx, userID)
	if err != nil {
		return nil, err
	}
	last, err := s.api.FetchLastStamp(ctx, token.Token)
	if err != nil {
		return nil, fmt.Errorf("fetch last stamp: %w", err)
	}
	return SelectButtons(last)
}

// Stamp records code for userID and returns the stamp created by AKASHI.
func (s *Service) Stamp(ctx context.Context, userID string, code Code) (Stamp, error) {
	if !code.Valid() {
		return Stamp{}, fmt.Errorf("unknown stamp code %d", int(code))
	}
	token, err := s.token(ctx, userID)
	if err != nil {
		return Stamp{}, err
	}
	st, err := s.api.SubmitStamp(ctx, token.Token, code)
	if err != nil {
		return Stamp{}, fmt.Errorf("submit stamp: %w", err)
	}
	return st, nil
}

// RegisterToken validates raw and stores it for userID. The expiry is left
// unknown so the next refresh run reissues the token and learns it.
func (s *Service) RegisterToken(ctx context.Context, userID, raw string) (UserToken, error) {
	if userID == "" {
		return UserToken{}, errors.New("user id required")
	}
	token, err := ParseToken(raw)
	if err != nil {
		return UserToken{}, err
	}
	return s.tokens.UpdateOrCreate(ctx, userID, token, nil)
}

func (s *Service) token(ctx context.Context, userID string) (*UserToken, error) {
	if userID == "" {
		return nil, ErrTokenNotFound
	}
	t, err := s.tokens.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTokenNotFound
	}
	return t, nil
}
