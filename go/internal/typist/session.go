package typist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/mcdev12/typerace/go/internal/api"
	"github.com/rs/zerolog/log"
)

// Tokens this close to expiry are replaced instead of reused.
const renewBefore = time.Minute

// Credentials is a signed-in anonymous identity.
type Credentials struct {
	Token     string    `json:"token"`
	AuthID    string    `json:"auth_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore persists credentials so the same identity, and so the same
// player, is reused between runs.
type TokenStore struct {
	path string

	mu      sync.RWMutex
	current *Credentials
}

func NewTokenStore(stateDir string) *TokenStore {
	return &TokenStore{path: filepath.Join(stateDir, "credentials.json")}
}

// Load returns the saved credentials, or nil when there are none.
func (s *TokenStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return &creds, nil
}

func (s *TokenStore) Save(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Token returns the token of the active credentials.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// SignIn reuses saved credentials while they are valid, otherwise asks the
// server for a new anonymous identity and saves it.
func (s *TokenStore) SignIn(ctx context.Context, client *api.IdentityServiceClient, now time.Time) (*Credentials, error) {
	saved, err := s.Load()
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable credentials")
	}
	if saved != nil && saved.Token != "" && saved.ExpiresAt.After(now.Add(renewBefore)) {
		s.activate(saved)
		return saved, nil
	}

	resp, err := client.SignInAnonymously(ctx, connect.NewRequest(&api.SignInAnonymouslyRequest{}))
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	creds := &Credentials{
		Token:     resp.Msg.Token,
		AuthID:    resp.Msg.AuthID,
		ExpiresAt: resp.Msg.ExpiresAt,
	}
	if err := s.Save(creds); err != nil {
		return nil, err
	}
	s.activate(creds)

	log.Info().Str("auth_id", creds.AuthID).Msg("signed in anonymously")
	return creds, nil
}

func (s *TokenStore) activate(creds *Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = creds
}
