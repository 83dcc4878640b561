package ai

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/shaktris/shaktris/internal/storage"
)

// ErrInvalidAPIToken rejects external-AI requests whose token is missing
// or unknown.
var ErrInvalidAPIToken = errors.New("ai: invalid api token")

// Registry tracks external computer players. Registration hands out a
// player id and an api token; the token authenticates every later move.
type Registry struct {
	store  *storage.Store
	logger *log.Logger
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store *storage.Store, logger *log.Logger) *Registry {
	return &Registry{store: store, logger: logger.WithPrefix("ai")}
}

// Register issues a credential for an external computer player.
func (r *Registry) Register(name string) (*storage.Credential, error) {
	cred := &storage.Credential{
		PlayerID:  "ext-" + uuid.NewString()[:8],
		APIToken:  uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	if cred.Name == "" {
		cred.Name = cred.PlayerID
	}
	if err := r.store.SaveCredential(cred); err != nil {
		return nil, err
	}
	r.logger.Info("external player registered", "player", cred.PlayerID, "name", cred.Name)
	return cred, nil
}

// Authenticate resolves an api token to its registration.
func (r *Registry) Authenticate(token string) (*storage.Credential, error) {
	if token == "" {
		return nil, ErrInvalidAPIToken
	}
	cred, err := r.store.CredentialByToken(token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidAPIToken
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}
