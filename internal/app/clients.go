// Package app holds the per-browser client state behind the HTTP API: a
// store session, an auth manager, an outbox of notices and navigations,
// and the WebSocket hub that pushes them.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/spot-saver/internal/auth"
	"github.com/iliyamo/spot-saver/internal/store"
)

// CookieName identifies the browser's client.
const CookieName = "spot_client"

const clientQueueSize = 4

// ErrTooManyClients is returned by Ensure when the registry is full even
// after idle clients were swept.
var ErrTooManyClients = errors.New("too many clients")

// ClientFactory creates store clients.
type ClientFactory interface {
	NewClient() *store.Client
}

// Client is one browser's state.
type Client struct {
	ID     string
	Store  *store.Client
	Auth   *auth.Manager
	Outbox *Outbox

	tasks    auth.Scheduler
	booking  sync.Mutex
	mu       sync.Mutex
	lastSeen time.Time
}

// WithBookingLock runs fn while no other booking operation of this client
// is in progress.
func (c *Client) WithBookingLock(fn func() error) error {
	c.booking.Lock()
	defer c.booking.Unlock()
	return fn()
}

// close stops the auth manager and the client's deferred-task queue.
func (c *Client) close() {
	c.Auth.Close()
	if q, ok := c.tasks.(interface{ Close() }); ok {
		q.Close()
	}
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Client) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// SchedulerFactory returns the Scheduler of a new client.
type SchedulerFactory func() auth.Scheduler

// Registry owns every live Client.  MaxClients caps the number of live
// clients; zero means no cap.
type Registry struct {
	MaxClients int

	factory  ClientFactory
	newTasks SchedulerFactory
	hub     *Hub
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry returns an empty Registry.  hub may be nil.  Every client
// gets its own scheduler from newTasks, or its own TaskQueue when newTasks
// is nil, so one client's slow profile fetch never delays another's.
func NewRegistry(factory ClientFactory, newTasks SchedulerFactory, hub *Hub, idleTTL time.Duration) *Registry {
	if newTasks == nil {
		newTasks = func() auth.Scheduler { return auth.NewTaskQueue(clientQueueSize) }
	}
	return &Registry{
		factory:  factory,
		newTasks: newTasks,
		hub:      hub,
		idleTTL:  idleTTL,
		now:      time.Now,
		clients:  make(map[string]*Client),
	}
}

// Lookup returns the client with id without creating it.
func (r *Registry) Lookup(id string) (*Client, bool) {
	r.mu.Lock()
	c, ok := r.clients[id]
	r.mu.Unlock()
	if ok {
		c.touch(r.now())
	}
	return c, ok
}

// Ensure returns the client with id, creating and starting it when id is
// empty or unknown.  created reports whether a new id was issued.  When
// the registry is full it returns ErrTooManyClients.
func (r *Registry) Ensure(ctx context.Context, id string) (c *Client, created bool, err error) {
	if id != "" {
		if c, ok := r.Lookup(id); ok {
			return c, false, nil
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	if r.full() {
		r.Sweep()
	}

	c = r.newClient(id)
	r.mu.Lock()
	if existing, ok := r.clients[id]; ok {
		r.mu.Unlock()
		c.close()
		return existing, false, nil
	}
	if r.MaxClients > 0 && len(r.clients) >= r.MaxClients {
		r.mu.Unlock()
		c.close()
		return nil, false, ErrTooManyClients
	}
	r.clients[id] = c
	r.mu.Unlock()

	if err := c.Auth.Start(ctx); err != nil {
		log.Printf("app: start client %s: %v", id, err)
	}
	return c, true, nil
}

func (r *Registry) full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.MaxClients > 0 && len(r.clients) >= r.MaxClients
}

func (r *Registry) newClient(id string) *Client {
	var push func(Message)
	if r.hub != nil {
		push = func(m Message) { r.hub.Send(id, m) }
	}
	out := NewOutbox(push)
	sc := r.factory.NewClient()
	c := &Client{ID: id, Store: sc, Outbox: out, tasks: r.newTasks(), lastSeen: r.now()}
	c.Auth = auth.NewManager(auth.Deps{
		Store:     sc,
		Profiles:  sc,
		Navigator: out,
		Notifier:  out,
		Scheduler: c.tasks,
	})
	if push != nil {
		c.Auth.Subscribe(func(st auth.State) { push(Message{Type: "auth_state", Data: st}) })
	}
	return c
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep removes clients idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	var stale []*Client
	r.mu.Lock()
	for id, c := range r.clients {
		if c.idleSince().Before(cutoff) {
			stale = append(stale, c)
			delete(r.clients, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		// a queue still running a slow profile fetch must not hold up
		// the caller
		go c.close()
		if r.hub != nil {
			r.hub.Drop(c.ID)
		}
	}
	return len(stale)
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				log.Printf("app: swept %d idle clients", n)
			}
		}
	}
}

// Close stops every client.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.clients
	r.clients = make(map[string]*Client)
	r.mu.Unlock()
	for _, c := range all {
		c.close()
	}
}
