// Package session keeps the single source of truth for who is signed in on a
// client and broadcasts login and logout transitions to subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quizportal/internal/identity"
	"quizportal/internal/profile"
)

var (
	ErrAlreadyInitialized = errors.New("session store already initialized")
	ErrInvalidConfig      = errors.New("invalid session store config")
)

type Status int

const (
	Loading Status = iota
	Unauthenticated
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is a published snapshot. Profile is nil unless Status is Authenticated.
type State struct {
	Status  Status
	Profile *Profile
}

func (s State) Authenticated() bool {
	return s.Status == Authenticated && s.Profile != nil
}

func (s State) IsAdmin() bool {
	return s.Authenticated() && s.Profile.IsAdmin()
}

type EventKind string

const (
	Login  EventKind = "login"
	Logout EventKind = "logout"
)

// Event is one login or logout transition. Logout events carry no profile.
type Event struct {
	Kind    EventKind
	Profile *Profile
}

type Listener func(Event)

// AuthSource is the auth service's subscribe-to-changes operation.
type AuthSource interface {
	OnAuthStateChanged(fn func(*identity.Identity)) (unsubscribe func())
}

type Config struct {
	Auth     AuthSource
	Profiles profile.Fetcher
	Logger   *slog.Logger
	// FetchTimeout bounds each profile fetch. Zero means no bound.
	FetchTimeout time.Duration
}

type Store struct {
	mu          sync.RWMutex
	notifyMu    sync.Mutex
	state       State
	generation  uint64
	cancelFetch context.CancelFunc
	listeners   map[int]Listener
	nextID      int

	initOnce    sync.Once
	ctx         context.Context
	cfg         Config
	log         *slog.Logger
	unsubscribe func()
}

func New() *Store {
	return &Store{
		state:     State{Status: Loading},
		listeners: make(map[int]Listener),
		log:       slog.Default(),
	}
}

// Initialize subscribes the store to cfg.Auth. It can succeed only once per
// store; later calls return ErrAlreadyInitialized and register nothing.
func (s *Store) Initialize(ctx context.Context, cfg Config) error {
	if cfg.Auth == nil || cfg.Profiles == nil {
		return fmt.Errorf("%w: auth source and profile fetcher are required", ErrInvalidConfig)
	}

	err := ErrAlreadyInitialized
	s.initOnce.Do(func() {
		err = nil
		if cfg.Logger != nil {
			s.log = cfg.Logger
		}
		s.ctx = context.WithoutCancel(ctx)
		s.cfg = cfg
		unsubscribe := cfg.Auth.OnAuthStateChanged(s.handleAuthChange)

		s.mu.Lock()
		s.unsubscribe = unsubscribe
		s.mu.Unlock()
	})
	return err
}

// Current returns the published state without waiting for pending fetches.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers l for every published transition.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close stops listening to the auth source and abandons any in-flight fetch.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.generation++
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Store) handleAuthChange(id *identity.Identity) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	if id == nil {
		s.mu.Unlock()
		if s.publish(gen, State{Status: Unauthenticated}, Event{Kind: Logout}) {
			s.log.Info("session logout")
		}
		return
	}
	fetchCtx, cancel := s.fetchContext()
	s.cancelFetch = cancel
	s.mu.Unlock()

	p := s.hydrate(fetchCtx, *id)
	cancel()
	if s.publish(gen, State{Status: Authenticated, Profile: &p}, Event{Kind: Login, Profile: &p}) {
		s.log.Info("session login", "uid", p.UID, "role_num", p.RoleNum)
	}
}

func (s *Store) fetchContext() (context.Context, context.CancelFunc) {
	if s.cfg.FetchTimeout > 0 {
		return context.WithTimeout(s.ctx, s.cfg.FetchTimeout)
	}
	return context.WithCancel(s.ctx)
}

// hydrate builds the profile for id. A failed fetch degrades to the identity
// claims with default role and batch.
func (s *Store) hydrate(ctx context.Context, id identity.Identity) Profile {
	base := defaultProfile(id)

	doc, err := s.cfg.Profiles.FetchProfile(ctx, id.UID)
	if err != nil {
		var fetchErr *profile.FetchError
		if !errors.As(err, &fetchErr) {
			fetchErr = &profile.FetchError{UID: id.UID, Err: err}
		}
		s.log.Error("profile fetch failed, using identity claims", "uid", id.UID, "error", fetchErr)
		return base
	}
	return mergeDocument(base, doc)
}

// publish stores st and notifies listeners, unless a newer auth change has
// started since gen was taken.
func (s *Store) publish(gen uint64, st State, ev Event) bool {
	// Held across notification so listeners see transitions in publish order.
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("discarding stale session result", "kind", ev.Kind)
		return false
	}
	s.state = st
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
	return true
}
