package realtime

import (
	"context"
	"sort"
	"sync"

	"lawdesk_backend/internal/logger"
)

// Member is one online user as seen by presence subscribers.
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// memberState is one user's refcounted membership in one room. Multiple
// tabs and devices each hold their own reference; the user stays online
// while any reference remains.
type memberState struct {
	member Member
	conns  map[string]int // connID -> joins held by that connection
}

func (s *memberState) total() int {
	n := 0
	for _, c := range s.conns {
		n += c
	}
	return n
}

type roomPresence struct {
	mu      sync.Mutex
	members map[string]*memberState // userID -> state
}

// Tracker owns presence state: ephemeral, server-held, never persisted.
// The outer map is guarded only for lookup and insert; counting happens
// under each room's own lock, so rooms never contend with each other.
type Tracker struct {
	mu     sync.RWMutex
	rooms  map[string]*roomPresence
	byConn map[string]map[string]bool // connID -> set of roomIDs

	transport Transport
}

func NewTracker(transport Transport) *Tracker {
	return &Tracker{
		rooms:     make(map[string]*roomPresence),
		byConn:    make(map[string]map[string]bool),
		transport: transport,
	}
}

func (t *Tracker) room(roomID string) *roomPresence {
	t.mu.Lock()
	defer t.mu.Unlock()
	rp, ok := t.rooms[roomID]
	if !ok {
		rp = &roomPresence{members: make(map[string]*memberState)}
		t.rooms[roomID] = rp
	}
	return rp
}

func (t *Tracker) indexConn(connID, roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byConn[connID] == nil {
		t.byConn[connID] = make(map[string]bool)
	}
	t.byConn[connID][roomID] = true
}

// Join increments the (room, user) refcount for connID and returns the
// full membership snapshot the joining connection must receive. On the
// 0→1 transition, member_added is broadcast to current subscribers.
func (t *Tracker) Join(roomID string, member Member, connID string) []Member {
	rp := t.room(roomID)
	t.indexConn(connID, roomID)

	rp.mu.Lock()
	state, ok := rp.members[member.ID]
	if !ok {
		state = &memberState{member: member, conns: make(map[string]int)}
		rp.members[member.ID] = state
	}
	wasOffline := state.total() == 0
	state.conns[connID]++
	snapshot := rp.snapshotLocked()
	rp.mu.Unlock()

	if wasOffline {
		PresenceMembers.Inc()
		t.broadcast(roomID, EventMemberAdded, memberEvent{Room: roomID, Member: member})
	}
	return snapshot
}

// Leave decrements the refcount held by connID. On the 1→0 transition,
// member_removed is broadcast. Leaving without a matching join is a
// no-op: the count never goes negative.
func (t *Tracker) Leave(roomID, userID, connID string) {
	t.mu.RLock()
	rp, ok := t.rooms[roomID]
	t.mu.RUnlock()
	if !ok {
		return
	}

	rp.mu.Lock()
	state, ok := rp.members[userID]
	if !ok || state.conns[connID] == 0 {
		rp.mu.Unlock()
		return
	}
	state.conns[connID]--
	if state.conns[connID] == 0 {
		delete(state.conns, connID)
	}
	wentOffline := state.total() == 0
	member := state.member
	if wentOffline {
		delete(rp.members, userID)
	}
	rp.mu.Unlock()

	if wentOffline {
		PresenceMembers.Dec()
		t.broadcast(roomID, EventMemberRemoved, memberEvent{Room: roomID, Member: member})
	}
}

// ReleaseConnection drops every reference held by connID across all
// rooms. Called on websocket disconnect and heartbeat timeout, so
// correctness never depends on a client sending an explicit leave.
func (t *Tracker) ReleaseConnection(connID string) {
	t.mu.Lock()
	roomIDs := make([]string, 0, len(t.byConn[connID]))
	for roomID := range t.byConn[connID] {
		roomIDs = append(roomIDs, roomID)
	}
	delete(t.byConn, connID)
	t.mu.Unlock()

	for _, roomID := range roomIDs {
		t.releaseConnFromRoom(roomID, connID)
	}
}

func (t *Tracker) releaseConnFromRoom(roomID, connID string) {
	t.mu.RLock()
	rp, ok := t.rooms[roomID]
	t.mu.RUnlock()
	if !ok {
		return
	}

	var removed []Member
	rp.mu.Lock()
	for userID, state := range rp.members {
		if state.conns[connID] == 0 {
			continue
		}
		delete(state.conns, connID)
		if state.total() == 0 {
			removed = append(removed, state.member)
			delete(rp.members, userID)
		}
	}
	rp.mu.Unlock()

	for _, member := range removed {
		PresenceMembers.Dec()
		t.broadcast(roomID, EventMemberRemoved, memberEvent{Room: roomID, Member: member})
	}
}

// Snapshot returns the current members of a room, ordered by user ID.
func (t *Tracker) Snapshot(roomID string) []Member {
	t.mu.RLock()
	rp, ok := t.rooms[roomID]
	t.mu.RUnlock()
	if !ok {
		return []Member{}
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.snapshotLocked()
}

// IsOnline reports whether the user holds at least one live reference in
// the room. Refcount semantics: many connections, one logical state.
func (t *Tracker) IsOnline(roomID, userID string) bool {
	t.mu.RLock()
	rp, ok := t.rooms[roomID]
	t.mu.RUnlock()
	if !ok {
		return false
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()
	state, ok := rp.members[userID]
	return ok && state.total() > 0
}

// Refcount returns the reference count for (room, user). Used by tests
// and the room list surface.
func (t *Tracker) Refcount(roomID, userID string) int {
	t.mu.RLock()
	rp, ok := t.rooms[roomID]
	t.mu.RUnlock()
	if !ok {
		return 0
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()
	state, ok := rp.members[userID]
	if !ok {
		return 0
	}
	return state.total()
}

func (rp *roomPresence) snapshotLocked() []Member {
	members := make([]Member, 0, len(rp.members))
	for _, state := range rp.members {
		if state.total() > 0 {
			members = append(members, state.member)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members
}

// memberEvent is the payload of member_added / member_removed.
type memberEvent struct {
	Room   string `json:"room"`
	Member Member `json:"member"`
}

// StatePayload is the snapshot payload for presence:state.
type StatePayload struct {
	Room    string   `json:"room"`
	Members []Member `json:"members"`
}

// Presence transitions are eventually consistent: the broadcast is not
// awaited by Join/Leave callers.
func (t *Tracker) broadcast(roomID, event string, payload any) {
	channel := PresenceRoomChannel(roomID)
	if err := t.transport.Publish(context.Background(), channel, event, payload); err != nil {
		logger.Warn("presence broadcast failed", "channel", channel, "event", event, "error", err)
	}
}
