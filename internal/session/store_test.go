package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"quizportal/internal/identity"
	"quizportal/internal/profile"
)

type fakeProfiles struct {
	mu      sync.Mutex
	docs    map[string]profile.Document
	err     error
	started chan string
	gates   map[string]chan struct{}
}

func (f *fakeProfiles) FetchProfile(ctx context.Context, uid string) (profile.Document, error) {
	f.mu.Lock()
	gate := f.gates[uid]
	doc, err := f.docs[uid], f.err
	f.mu.Unlock()

	if f.started != nil {
		f.started <- uid
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return profile.Document{}, ctx.Err()
		}
	}
	if err != nil {
		return profile.Document{}, &profile.FetchError{UID: uid, Err: err}
	}
	return doc, nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStoreTest(t *testing.T, profiles profile.Fetcher) (*Store, *identity.AuthState, *recorder) {
	t.Helper()
	auth := identity.NewAuthState()
	store := New()
	rec := &recorder{}
	store.Subscribe(rec.listen)
	if err := store.Initialize(context.Background(), Config{Auth: auth, Profiles: profiles, Logger: quietLogger()}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(store.Close)
	return store, auth, rec
}

var ada = identity.Identity{UID: "u-1", DisplayName: "Ada", Email: "ada@school.test", PhotoURL: "https://img.test/ada.png"}

func TestInitialStateIsLoading(t *testing.T) {
	store := New()
	if got := store.Current(); got.Status != Loading || got.Profile != nil {
		t.Fatalf("expected loading state, got %+v", got)
	}
	if store.Current().Authenticated() || store.Current().IsAdmin() {
		t.Fatalf("loading state must not count as signed in")
	}
}

func TestLoginMergesProfileDocument(t *testing.T) {
	profiles := &fakeProfiles{docs: map[string]profile.Document{
		"u-1": {Exists: true, Data: map[string]any{
			"role_num":    int64(7),
			"batch_id":    "2026-A",
			"displayName": "Ada L.",
			"house":       "blue",
		}},
	}}
	store, auth, rec := newStoreTest(t, profiles)

	auth.SignIn(ada)

	st := store.Current()
	if !st.Authenticated() {
		t.Fatalf("expected authenticated state, got %+v", st)
	}
	p := st.Profile
	if p.UID != "u-1" || p.Email != "ada@school.test" || p.PhotoURL != "https://img.test/ada.png" {
		t.Fatalf("identity claims lost: %+v", p)
	}
	if p.DisplayName != "Ada L." {
		t.Fatalf("remote displayName should win, got %q", p.DisplayName)
	}
	if p.RoleNum != 7 || p.BatchID == nil || *p.BatchID != "2026-A" {
		t.Fatalf("unexpected role/batch %d %v", p.RoleNum, p.BatchID)
	}
	if p.Extra["house"] != "blue" {
		t.Fatalf("expected unknown field in Extra, got %+v", p.Extra)
	}
	if !st.IsAdmin() {
		t.Fatalf("role 7 should be admin")
	}

	events := rec.snapshot()
	if len(events) != 1 || events[0].Kind != Login || events[0].Profile == nil || events[0].Profile.UID != "u-1" {
		t.Fatalf("expected one login event, got %+v", events)
	}
}

func TestLoginWithoutDocumentUsesDefaults(t *testing.T) {
	store, auth, _ := newStoreTest(t, &fakeProfiles{docs: map[string]profile.Document{}})

	auth.SignIn(ada)

	p := store.Current().Profile
	if p == nil || p.RoleNum != DefaultRoleNum || p.BatchID != nil || p.DisplayName != "Ada" {
		t.Fatalf("unexpected default profile %+v", p)
	}
	if store.Current().IsAdmin() {
		t.Fatalf("default profile must not be admin")
	}
}

func TestLoginFetchFailureFallsBackToClaims(t *testing.T) {
	profiles := &fakeProfiles{
		docs: map[string]profile.Document{"u-1": {Exists: true, Data: map[string]any{"role_num": 9}}},
		err:  errors.New("permission denied"),
	}
	store, auth, rec := newStoreTest(t, profiles)

	auth.SignIn(ada)

	st := store.Current()
	if !st.Authenticated() {
		t.Fatalf("fetch failure must not block login")
	}
	want := Profile{UID: "u-1", DisplayName: "Ada", Email: "ada@school.test", PhotoURL: "https://img.test/ada.png", RoleNum: 1}
	got := *st.Profile
	if got.UID != want.UID || got.DisplayName != want.DisplayName || got.Email != want.Email ||
		got.PhotoURL != want.PhotoURL || got.RoleNum != want.RoleNum || got.BatchID != nil || got.Extra != nil {
		t.Fatalf("expected minimal profile %+v, got %+v", want, got)
	}
	if events := rec.snapshot(); len(events) != 1 || events[0].Kind != Login {
		t.Fatalf("expected one login event, got %+v", events)
	}
}

func TestLogoutPublishesUnauthenticated(t *testing.T) {
	store, auth, rec := newStoreTest(t, &fakeProfiles{})

	auth.SignIn(ada)
	auth.SignOut()

	if st := store.Current(); st.Status != Unauthenticated || st.Profile != nil {
		t.Fatalf("expected unauthenticated state, got %+v", st)
	}
	events := rec.snapshot()
	if len(events) != 2 || events[1].Kind != Logout || events[1].Profile != nil {
		t.Fatalf("expected login then bare logout, got %+v", events)
	}
}

func TestFirstCallbackCanBeLogout(t *testing.T) {
	store, auth, rec := newStoreTest(t, &fakeProfiles{})
	auth.SignOut()

	if store.Current().Status != Unauthenticated {
		t.Fatalf("expected loading -> unauthenticated")
	}
	if events := rec.snapshot(); len(events) != 1 || events[0].Kind != Logout {
		t.Fatalf("expected a single logout event, got %+v", events)
	}
}

func TestInitializeOnlyOnce(t *testing.T) {
	auth := identity.NewAuthState()
	store := New()
	defer store.Close()
	rec := &recorder{}
	store.Subscribe(rec.listen)
	cfg := Config{Auth: auth, Profiles: &fakeProfiles{}, Logger: quietLogger()}

	if err := store.Initialize(context.Background(), cfg); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if err := store.Initialize(context.Background(), cfg); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}

	auth.SignIn(ada)
	if events := rec.snapshot(); len(events) != 1 {
		t.Fatalf("duplicate auth listener registered: %d events", len(events))
	}
}

func TestInitializeRejectsIncompleteConfig(t *testing.T) {
	if err := New().Initialize(context.Background(), Config{Profiles: &fakeProfiles{}}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig without auth, got %v", err)
	}
	if err := New().Initialize(context.Background(), Config{Auth: identity.NewAuthState()}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig without profiles, got %v", err)
	}
}

func TestInitializeAfterAuthResolved(t *testing.T) {
	auth := identity.NewAuthState()
	auth.SignIn(ada)

	store := New()
	defer store.Close()
	if err := store.Initialize(context.Background(), Config{Auth: auth, Profiles: &fakeProfiles{}, Logger: quietLogger()}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !store.Current().Authenticated() {
		t.Fatalf("expected store to pick up the already signed in identity")
	}
}

// A slow fetch started for an older login must not overwrite a newer logout.
func TestStaleFetchIsDiscarded(t *testing.T) {
	profiles := &fakeProfiles{
		docs:    map[string]profile.Document{"u-1": {Exists: true, Data: map[string]any{"role_num": 9}}},
		started: make(chan string, 4),
		gates:   map[string]chan struct{}{"u-1": make(chan struct{})},
	}
	store, auth, rec := newStoreTest(t, profiles)

	done := make(chan struct{})
	go func() {
		auth.SignIn(ada)
		close(done)
	}()

	select {
	case <-profiles.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("profile fetch never started")
	}

	auth.SignOut()
	close(profiles.gates["u-1"])

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stale login never returned")
	}

	if st := store.Current(); st.Status != Unauthenticated {
		t.Fatalf("stale login overwrote logout: %+v", st)
	}
	events := rec.snapshot()
	if len(events) != 1 || events[0].Kind != Logout {
		t.Fatalf("expected only the logout event, got %+v", events)
	}
}

func TestCloseStopsListening(t *testing.T) {
	store, auth, rec := newStoreTest(t, &fakeProfiles{})
	store.Close()

	auth.SignIn(ada)
	if store.Current().Status != Loading {
		t.Fatalf("closed store must not change state")
	}
	if len(rec.snapshot()) != 0 {
		t.Fatalf("closed store must not emit events")
	}
}

func TestSubscribeCancel(t *testing.T) {
	store, auth, _ := newStoreTest(t, &fakeProfiles{})
	rec := &recorder{}
	cancel := store.Subscribe(rec.listen)
	cancel()

	auth.SignIn(ada)
	if len(rec.snapshot()) != 0 {
		t.Fatalf("cancelled listener still notified")
	}
}

func TestMergeDocumentFieldTypes(t *testing.T) {
	base := defaultProfile(ada)

	tests := []struct {
		name  string
		data  map[string]any
		check func(Profile) bool
	}{
		{"float role from json", map[string]any{"role_num": float64(6)}, func(p Profile) bool { return p.RoleNum == 6 }},
		{"fractional role kept in extra", map[string]any{"role_num": 6.5}, func(p Profile) bool { return p.RoleNum == 1 && p.Extra["role_num"] == 6.5 }},
		{"string role kept in extra", map[string]any{"role_num": "9"}, func(p Profile) bool { return p.RoleNum == 1 && p.Extra["role_num"] == "9" }},
		{"null batch", map[string]any{"batch_id": nil}, func(p Profile) bool { return p.BatchID == nil }},
		{"null display name", map[string]any{"displayName": nil}, func(p Profile) bool { return p.DisplayName == "" }},
		{"remote uid wins", map[string]any{"uid": "u-remote"}, func(p Profile) bool { return p.UID == "u-remote" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeDocument(base, profile.Document{Exists: true, Data: tt.data})
			if !tt.check(got) {
				t.Fatalf("unexpected merge result %+v", got)
			}
		})
	}

	if got := mergeDocument(base, profile.Document{Exists: false, Data: map[string]any{"role_num": 9}}); got.RoleNum != 1 {
		t.Fatalf("missing document must not be merged")
	}
}
