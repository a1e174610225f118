package app

import (
	"sync"
	"time"

	"github.com/iliyamo/spot-saver/internal/auth"
)

// Notice is a message for the user.
type Notice struct {
	Kind    auth.Kind `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Navigation asks the browser to open a page.  State carries transient
// values such as the search date and duration.
type Navigation struct {
	Path  string         `json:"path"`
	State map[string]any `json:"state,omitempty"`
	At    time.Time      `json:"at"`
}

// Outbox collects the notices and navigations produced for one client
// until the next response drains them.  Each entry is also pushed live.
type Outbox struct {
	mu      sync.Mutex
	notices []Notice
	navs    []Navigation
	push    func(Message)
}

// NewOutbox returns an Outbox; push may be nil.
func NewOutbox(push func(Message)) *Outbox {
	return &Outbox{push: push}
}

// NavigateTo implements auth.Navigator.
func (o *Outbox) NavigateTo(path string, state map[string]any) {
	n := Navigation{Path: path, State: state, At: time.Now().UTC()}
	o.mu.Lock()
	o.navs = append(o.navs, n)
	o.mu.Unlock()
	if o.push != nil {
		o.push(Message{Type: "navigate", Data: n})
	}
}

// Notify implements auth.Notifier.
func (o *Outbox) Notify(kind auth.Kind, title, message string) {
	n := Notice{Kind: kind, Title: title, Message: message, At: time.Now().UTC()}
	o.mu.Lock()
	o.notices = append(o.notices, n)
	o.mu.Unlock()
	if o.push != nil {
		o.push(Message{Type: "notice", Data: n})
	}
}

// Drain returns and clears everything pending.  Both slices are non-nil.
func (o *Outbox) Drain() ([]Notice, []Navigation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	notices, navs := o.notices, o.navs
	o.notices, o.navs = nil, nil
	if notices == nil {
		notices = []Notice{}
	}
	if navs == nil {
		navs = []Navigation{}
	}
	return notices, navs
}
