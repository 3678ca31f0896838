package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/retry"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
)

// Store persists encrypted refresh tokens.
type Store interface {
	// GetEncryptedToken returns [shared.ErrNotFound] when the user has no stored token.
	GetEncryptedToken(ctx context.Context, userID string) (string, error)
	SaveEncryptedToken(ctx context.Context, userID, ciphertext string) error
}

// ManagerOpts holds the dependencies of a [Manager].
type ManagerOpts struct {
	Store     Store
	Encryptor Encryptor
	Exchanger Exchanger
	Retry     *retry.Client
	Logger    *log.Logger
}

// Manager resolves users to authenticated, retrying playlist clients.
type Manager struct {
	store     Store
	encryptor Encryptor
	exchanger Exchanger
	retry     *retry.Client
	logger    *log.Logger
}

// NewManager creates a [Manager].
func NewManager(opts ManagerOpts) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	retryClient := opts.Retry
	if retryClient == nil {
		retryClient = retry.New(retry.DefaultPolicy(), logger)
	}
	return &Manager{
		store:     opts.Store,
		encryptor: opts.Encryptor,
		exchanger: opts.Exchanger,
		retry:     retryClient,
		logger:    shared.WithLogger(logger, "component", "credentials"),
	}
}

// GetClient decrypts the user's refresh token, exchanges it and returns a client whose calls are retried.
//
// It fails with [*NoCredentialError], [*DecryptionError] or [*ExchangeError]. A rotated refresh token
// is re-encrypted and saved; failure to save it is logged and does not fail the call.
func (m *Manager) GetClient(ctx context.Context, userID string) (services.PlaylistAPI, error) {
	ciphertext, err := m.store.GetEncryptedToken(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && ciphertext == "") {
		return nil, &NoCredentialError{UserID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	plaintext, err := m.encryptor.Decrypt(ciphertext)
	if err != nil {
		return nil, &DecryptionError{UserID: userID, Err: err}
	}
	refreshToken := string(plaintext)

	rotation := &rotationRecorder{manager: m, ctx: context.WithoutCancel(ctx), userID: userID, last: refreshToken}

	var (
		api     services.PlaylistAPI
		rotated string
	)
	err = m.retry.Do(ctx, "exchange credential", func(ctx context.Context) error {
		var exchangeErr error
		api, rotated, exchangeErr = m.exchanger.Exchange(ctx, refreshToken, rotation.record)
		return exchangeErr
	})
	if err != nil {
		return nil, &ExchangeError{UserID: userID, Err: err}
	}

	if rotated != "" {
		rotation.record(rotated)
	}

	return retry.NewPlaylistClient(api, m.retry), nil
}

// StoreCredential encrypts and saves a refresh token obtained from an interactive login.
func (m *Manager) StoreCredential(ctx context.Context, userID, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("%w: empty refresh token", shared.ErrMissingCredentials)
	}
	ciphertext, err := m.encryptor.Encrypt([]byte(refreshToken))
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}
	if err := m.store.SaveEncryptedToken(ctx, userID, ciphertext); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// rotationRecorder persists each distinct rotated token once, best effort.
type rotationRecorder struct {
	manager *Manager
	ctx     context.Context
	userID  string

	mu   sync.Mutex
	last string
}

func (r *rotationRecorder) record(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token == "" || token == r.last {
		return
	}
	r.last = token

	if err := r.manager.StoreCredential(r.ctx, r.userID, token); err != nil {
		r.manager.logger.Warn("failed to persist rotated credential; next run will rotate again", "user", r.userID, "err", err)
		return
	}
	r.manager.logger.Info("persisted rotated credential", "user", r.userID)
}
