// Package session holds the single source of truth for who is logged in.
//
// A Store is constructed without I/O and becomes durable only after the host
// calls Restore once persistent storage is available. Every mutation goes
// through Commit or Clear, which replace the persisted record and the live
// state together and then notify subscribers in registration order.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	apperrors "github.com/target/clinic-session/internal/errors"
	"github.com/target/clinic-session/internal/ports"
)

// ChangeKind labels a session transition for observers and metrics.
type ChangeKind string

const (
	ChangeRestore ChangeKind = "restore"
	ChangeCommit  ChangeKind = "commit"
	ChangeClear   ChangeKind = "clear"
)

// ChangeRecorder receives one call per applied transition. Optional.
type ChangeRecorder interface {
	RecordSessionChange(kind string)
}

// Options groups dependencies for Store.
type Options struct {
	Storage ports.CredentialStorage
	Logger  *slog.Logger
	Metrics ChangeRecorder
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Observer receives the current identity; nil means no session.
type Observer func(*domainauth.Identity)

// Store is the process-wide session container. It is safe for concurrent use.
type Store struct {
	storage ports.CredentialStorage
	logger  *slog.Logger
	metrics ChangeRecorder
	now     func() time.Time

	// writeMu serializes mutations and subscriber registration so notifications
	// are delivered in mutation order.
	writeMu sync.Mutex

	mu        sync.RWMutex
	identity  *domainauth.Identity
	cred      domainauth.Credential
	observers []*Subscription
	restored  bool
}

// New constructs a Store. It performs no I/O; call Restore to load persisted state.
func New(opts Options) (*Store, error) {
	if opts.Storage == nil {
		return nil, errors.New("session storage is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		storage: opts.Storage,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}, nil
}

// Restore adopts the persisted session when its token is present and unexpired.
// Unreadable or stale persisted data leaves the store empty; Restore never fails on it.
func (s *Store) Restore(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	identity, cred, err := s.load(ctx)
	if err != nil {
		if apperrors.IsDataCorruption(err) {
			s.logger.WarnContext(ctx, "discarding unreadable persisted session", "error", err)
			s.discard(ctx)
		} else {
			s.logger.ErrorContext(ctx, "session restore failed", "error", err)
		}
		identity, cred = nil, domainauth.Credential{}
	}

	s.mu.Lock()
	s.identity = identity
	s.cred = cred
	s.restored = true
	s.mu.Unlock()

	if identity != nil {
		s.logger.InfoContext(ctx, "session restored", "user_id", identity.UserID, "role", identity.Role)
	}
	s.record(ChangeRestore)
	s.notify(identity)
}

// load reads and validates the persisted record. It returns a nil identity for
// an absent or expired session and a DataCorruption error for unreadable data.
func (s *Store) load(ctx context.Context) (*domainauth.Identity, domainauth.Credential, error) {
	rec, err := s.storage.Load(ctx)
	if err != nil {
		return nil, domainauth.Credential{}, err
	}
	if rec.Token == "" {
		if !rec.IsZero() {
			s.logger.DebugContext(ctx, "persisted session has no token, clearing residue")
			s.discard(ctx)
		}
		return nil, domainauth.Credential{}, nil
	}

	exp, err := domainauth.ParseExpiry(rec.TokenExpiration)
	if err != nil {
		return nil, domainauth.Credential{}, apperrors.DataCorruption("persisted token expiry unreadable", err)
	}
	cred := domainauth.Credential{Token: rec.Token, ExpiresAt: exp}
	if !cred.LiveAt(s.now()) {
		s.logger.DebugContext(ctx, "persisted session expired", "expires_at", exp)
		s.discard(ctx)
		return nil, domainauth.Credential{}, nil
	}

	if rec.CurrentUser == "" {
		return nil, domainauth.Credential{}, apperrors.DataCorruption("persisted identity missing", nil)
	}
	var identity domainauth.Identity
	if err := json.Unmarshal([]byte(rec.CurrentUser), &identity); err != nil {
		return nil, domainauth.Credential{}, apperrors.DataCorruption("persisted identity unreadable", err)
	}
	// "null" and "{}" decode cleanly but name nobody.
	if identity.UserID == "" || identity.Role == "" {
		return nil, domainauth.Credential{}, apperrors.DataCorruption("persisted identity incomplete", nil)
	}
	return &identity, cred, nil
}

// discard clears persisted residue best effort.
func (s *Store) discard(ctx context.Context) {
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear stale session failed", "error", err)
	}
}

// Commit persists identity and credential together and makes them the live session.
func (s *Store) Commit(ctx context.Context, identity domainauth.Identity, cred domainauth.Credential) error {
	if cred.Token == "" {
		return apperrors.ValidationField("token", "token is required")
	}
	if !cred.LiveAt(s.now()) {
		return apperrors.ValidationField("expiresAt", "credential expiry must be in the future")
	}

	user, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	rec := ports.Record{
		Token:           cred.Token,
		TokenExpiration: domainauth.FormatExpiry(cred.ExpiresAt),
		CurrentUser:     string(user),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.storage.Save(ctx, rec); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	committed := identity
	s.mu.Lock()
	s.identity = &committed
	s.cred = cred
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "session committed", "user_id", identity.UserID, "role", identity.Role)
	s.record(ChangeCommit)
	s.notify(&committed)
	return nil
}

// Clear erases the persisted record and empties the live session.
// The live session is emptied even when the storage erase fails.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.clearLocked(ctx)
}

// ClearIfToken clears only while token is still the live token. It reports whether it cleared.
func (s *Store) ClearIfToken(ctx context.Context, token string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current := s.cred.Token
	s.mu.RUnlock()
	if current != token {
		return false, nil
	}
	return true, s.clearLocked(ctx)
}

// ClearIfExpired clears a session whose credential has lapsed. It reports whether it cleared.
func (s *Store) ClearIfExpired(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	cred := s.cred
	s.mu.RUnlock()
	if cred.IsZero() || cred.LiveAt(s.now()) {
		return false, nil
	}
	s.logger.InfoContext(ctx, "session expired", "expires_at", cred.ExpiresAt)
	return true, s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	storageErr := s.storage.Clear(ctx)

	s.mu.Lock()
	s.identity = nil
	s.cred = domainauth.Credential{}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "session cleared")
	s.record(ChangeClear)
	s.notify(nil)

	if storageErr != nil {
		return fmt.Errorf("erase persisted session: %w", storageErr)
	}
	return nil
}

// Current returns the live identity, or nil when no unexpired session exists.
func (s *Store) Current() *domainauth.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil || !s.cred.LiveAt(s.now()) {
		return nil
	}
	id := *s.identity
	return &id
}

// Token returns the raw bearer token, or "" when none is held.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.Token
}

// Credential returns a copy of the held credential.
func (s *Store) Credential() domainauth.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

// IsLive reports whether a token is held and its expiry is strictly after now.
func (s *Store) IsLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.LiveAt(s.now())
}

// Restored reports whether Restore has run.
func (s *Store) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	store *Store
	fn    Observer
	once  sync.Once
}

// Subscribe registers fn and immediately calls it with the current identity.
// fn is then called after every Commit, Clear and Restore in registration order.
// Observers must not mutate the store from inside fn.
func (s *Store) Subscribe(fn Observer) *Subscription {
	sub := &Subscription{store: s, fn: fn}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	fn(s.Current())

	s.mu.Lock()
	s.observers = append(s.observers, sub)
	s.mu.Unlock()
	return sub
}

// Unsubscribe stops further notifications. Once it returns the observer is
// not called again. It waits for an in-progress notification, so it must not
// be called from inside an observer. Safe to call more than once.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		s := sub.store
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o == sub {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	})
}

// notify must be called with writeMu held.
func (s *Store) notify(identity *domainauth.Identity) {
	s.mu.RLock()
	observers := append([]*Subscription(nil), s.observers...)
	s.mu.RUnlock()

	for _, o := range observers {
		var v *domainauth.Identity
		if identity != nil {
			cp := *identity
			v = &cp
		}
		o.fn(v)
	}
}

func (s *Store) record(kind ChangeKind) {
	if s.metrics != nil {
		s.metrics.RecordSessionChange(string(kind))
	}
}
