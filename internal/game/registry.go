// Package game implements the match lifecycle engine and the connected
// client registry shared by every connection goroutine.
package game

import (
	"errors"
	"sort"
	"sync"
	"unicode/utf8"
)

// MaxNameLen bounds display names
const MaxNameLen = 32

// Registry errors
var (
	ErrClientsFull   = errors.New("client table full")
	ErrNameTaken     = errors.New("name already taken")
	ErrBadName       = errors.New("invalid name")
	ErrUnknownClient = errors.New("unknown client")
)

// SendFunc delivers one text block to a client. It is called without any
// registry lock held; a failure affects only that client.
type SendFunc func(text string) error

type client struct {
	send        SendFunc
	loggedIn    bool
	name        string
	activeMatch int // 0 = not playing
	seq         uint64
}

// Registry is the fixed-capacity table of connected clients. All state
// is guarded by one mutex; message dispatch happens only after the lock
// is released.
type Registry struct {
	mu       sync.Mutex
	clients  map[ClientID]*client
	capacity int
	nextSeq  uint64
}

// NewRegistry creates a registry holding at most capacity clients
func NewRegistry(capacity int) *Registry {
	return &Registry{
		clients:  make(map[ClientID]*client),
		capacity: capacity,
	}
}

// Add allocates a slot for a new connection
func (rg *Registry) Add(id ClientID, send SendFunc) error {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	if len(rg.clients) >= rg.capacity {
		return ErrClientsFull
	}
	rg.nextSeq++
	rg.clients[id] = &client{send: send, seq: rg.nextSeq}
	return nil
}

// Remove clears the slot. Safe to call for an unknown id.
func (rg *Registry) Remove(id ClientID) {
	rg.mu.Lock()
	delete(rg.clients, id)
	rg.mu.Unlock()
}

// Login validates name and marks the client as logged in. The uniqueness
// check and the assignment happen under one lock, so two simultaneous
// logins with the same name cannot both succeed.
func (rg *Registry) Login(id ClientID, name string) error {
	if name == "" || utf8.RuneCountInString(name) > MaxNameLen {
		return ErrBadName
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()

	for _, c := range rg.clients {
		if c.loggedIn && c.name == name {
			return ErrNameTaken
		}
	}

	c, ok := rg.clients[id]
	if !ok {
		return ErrUnknownClient
	}
	c.name = name
	c.loggedIn = true
	return nil
}

// Name returns the display name if the client is logged in
func (rg *Registry) Name(id ClientID) (string, bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	c, ok := rg.clients[id]
	if !ok || !c.loggedIn {
		return "", false
	}
	return c.name, true
}

// Users lists the names of all logged-in clients in connection order
func (rg *Registry) Users() []string {
	type entry struct {
		name string
		seq  uint64
	}

	rg.mu.Lock()
	entries := make([]entry, 0, len(rg.clients))
	for _, c := range rg.clients {
		if c.loggedIn {
			entries = append(entries, entry{c.name, c.seq})
		}
	}
	rg.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// ActiveMatch returns the id of the match the client is playing, if any
func (rg *Registry) ActiveMatch(id ClientID) (int, bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	c, ok := rg.clients[id]
	if !ok || c.activeMatch == 0 {
		return 0, false
	}
	return c.activeMatch, true
}

// SetActiveMatch records which match the client is currently playing
func (rg *Registry) SetActiveMatch(id ClientID, matchID int) {
	rg.mu.Lock()
	if c, ok := rg.clients[id]; ok {
		c.activeMatch = matchID
	}
	rg.mu.Unlock()
}

// ClearActiveMatch marks the client as not playing
func (rg *Registry) ClearActiveMatch(id ClientID) {
	rg.SetActiveMatch(id, 0)
}

// Send delivers text to one client. The send function is looked up under
// lock and invoked after release.
func (rg *Registry) Send(id ClientID, text string) {
	rg.mu.Lock()
	c, ok := rg.clients[id]
	var send SendFunc
	if ok {
		send = c.send
	}
	rg.mu.Unlock()

	if send != nil {
		// Peer may already be gone; the state change that triggered this
		// message has committed either way.
		_ = send(text)
	}
}

// Broadcast sends text to every logged-in client except exclude. The
// recipient set is snapshotted under lock and each send happens against
// the snapshot, so a client disconnecting mid-dispatch only fails its
// own delivery.
func (rg *Registry) Broadcast(text string, exclude ClientID) {
	rg.mu.Lock()
	sends := make([]SendFunc, 0, len(rg.clients))
	for id, c := range rg.clients {
		if !c.loggedIn || id == exclude {
			continue
		}
		sends = append(sends, c.send)
	}
	rg.mu.Unlock()

	for _, send := range sends {
		_ = send(text)
	}
}
