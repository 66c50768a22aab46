package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quizportal/internal/identity"
	"quizportal/internal/profile"
	"quizportal/internal/session"
	"quizportal/internal/toast"
	"quizportal/internal/ws"
)

// Client is everything one browser visitor owns: its auth state, the session
// store mirroring it, its toasts and its live connections.
type Client struct {
	ID      string
	Auth    *identity.AuthState
	Session *session.Store
	Toasts  *toast.Queue
	Hub     *ws.Hub

	toastDuration time.Duration
	log           *slog.Logger
	restoreOnce   sync.Once

	mu       sync.Mutex
	lastSeen time.Time
	signedIn bool
	cancels  []func()
}

type Deps struct {
	Profiles      profile.Fetcher
	FetchTimeout  time.Duration
	ToastDuration time.Duration
	Logger        *slog.Logger
}

func newClient(ctx context.Context, id string, deps Deps) (*Client, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("client", id)

	c := &Client{
		ID:            id,
		Auth:          identity.NewAuthState(),
		Session:       session.New(),
		Toasts:        toast.NewQueue(),
		toastDuration: deps.ToastDuration,
		log:           log,
		lastSeen:      time.Now(),
	}
	c.Hub = ws.NewHub(c.handleMessage, log)

	c.cancels = append(c.cancels,
		c.Session.Subscribe(c.onSessionEvent),
		c.Toasts.OnChange(c.onToastChange),
	)

	err := c.Session.Initialize(ctx, session.Config{
		Auth:         c.Auth,
		Profiles:     deps.Profiles,
		Logger:       log,
		FetchTimeout: deps.FetchTimeout,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize session: %w", err)
	}
	return c, nil
}

// State is the published session of this client.
func (c *Client) State() session.State {
	return c.Session.Current()
}

// RestoreAuth runs restore the first time it is called for this client.
// Concurrent callers block until that first run has returned.
func (c *Client) RestoreAuth(restore func()) {
	c.restoreOnce.Do(restore)
}

// Notify queues a toast with the client's default duration.
func (c *Client) Notify(message string, kind toast.Kind) string {
	return c.Toasts.Add(message, kind, c.toastDuration)
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Client) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// Close releases the session subscription, timers and connections.
func (c *Client) Close() {
	c.mu.Lock()
	cancels := c.cancels
	c.cancels = nil
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	c.Session.Close()
	c.Toasts.Clear()
	c.Hub.Close()
}

// onSessionEvent greets on login. The logout toast is only shown when a
// signed in visitor leaves, not for the initial anonymous state.
func (c *Client) onSessionEvent(ev session.Event) {
	c.mu.Lock()
	wasSignedIn := c.signedIn
	c.signedIn = ev.Kind == session.Login
	c.mu.Unlock()

	switch ev.Kind {
	case session.Login:
		c.Notify(fmt.Sprintf("Welcome, %s", ev.Profile.Name()), toast.Success)
		c.push("session:login", ev.Profile)
	case session.Logout:
		if wasSignedIn {
			c.Notify("You have been signed out", toast.Info)
		}
		c.push("session:logout", nil)
	}
}

func (c *Client) onToastChange(ch toast.Change) {
	switch ch.Op {
	case toast.Added:
		c.push("toast:add", ch.Toast)
	case toast.Removed:
		c.push("toast:remove", map[string]string{"id": ch.Toast.ID})
	}
}

func (c *Client) push(event string, data any) {
	msg, err := ws.NewMessage(event, data)
	if err != nil {
		c.log.Error("encode websocket message", "event", event, "error", err)
		return
	}
	c.Hub.Broadcast(msg)
}

func (c *Client) handleMessage(_ context.Context, msg ws.Message) {
	switch msg.Event {
	case "toast:dismiss":
		var body struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &body); err != nil || body.ID == "" {
			c.log.Warn("bad toast:dismiss payload")
			return
		}
		c.Toasts.Remove(body.ID)
	default:
		c.log.Warn("unknown websocket event", "event", msg.Event)
	}
}
