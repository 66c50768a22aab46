package identity

import "sync"

// Identity is the set of claims the auth service vouches for.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

// AuthState is one client's view of the auth service: who is signed in and who
// wants to hear about it. Listeners run synchronously on the goroutine that
// changed the state, one change at a time and in the order the changes were
// made.
type AuthState struct {
	// dispatchMu is held from a state change until its listeners return.
	dispatchMu sync.Mutex
	mu         sync.Mutex
	resolved   bool
	current    *Identity
	listeners  map[int]func(*Identity)
	nextID     int
}

func NewAuthState() *AuthState {
	return &AuthState{listeners: make(map[int]func(*Identity))}
}

// OnAuthStateChanged registers fn. If the state is already resolved fn is called
// once right away with the current identity (nil when signed out).
func (a *AuthState) OnAuthStateChanged(fn func(*Identity)) func() {
	a.dispatchMu.Lock()
	defer a.dispatchMu.Unlock()

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	resolved, current := a.resolved, a.current
	a.mu.Unlock()

	if resolved {
		fn(cloneIdentity(current))
	}

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *AuthState) SignIn(id Identity) {
	a.set(&id)
}

func (a *AuthState) SignOut() {
	a.set(nil)
}

// Current returns the signed in identity, or nil.
func (a *AuthState) Current() *Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneIdentity(a.current)
}

// Resolved reports whether the state has been set at least once.
func (a *AuthState) Resolved() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resolved
}

func (a *AuthState) set(id *Identity) {
	a.dispatchMu.Lock()
	defer a.dispatchMu.Unlock()

	a.mu.Lock()
	a.resolved = true
	a.current = id
	fns := make([]func(*Identity), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(cloneIdentity(id))
	}
}

func cloneIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
