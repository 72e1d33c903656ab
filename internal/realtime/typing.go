package realtime

import (
	"context"
	"sync"
	"time"

	"lawdesk_backend/internal/logger"
)

// typingState is one (room, user) typing entry. gen guards the expiry
// timer: a newer StartTyping invalidates callbacks armed by older ones,
// giving last-write-wins semantics.
type typingState struct {
	mu     sync.Mutex
	member Member
	gen    uint64
	active bool
	timer  *time.Timer
}

// TypingBroadcaster owns ephemeral typing state. Every StartTyping arms a
// fixed idle expiry so the indicator clears even when the stop event is
// lost on a flaky connection. Nothing here is ever persisted.
type TypingBroadcaster struct {
	idle      time.Duration
	transport Transport
	states    sync.Map // "roomID|userID" -> *typingState
}

func NewTypingBroadcaster(transport Transport, idle time.Duration) *TypingBroadcaster {
	if idle <= 0 {
		idle = time.Second
	}
	return &TypingBroadcaster{idle: idle, transport: transport}
}

func typingKey(roomID, userID string) string {
	return roomID + "|" + userID
}

// typingEvent is the payload of typing-started / typing-stopped.
type typingEvent struct {
	Room   string `json:"room"`
	Member Member `json:"member"`
}

// StartTyping marks the user as typing and (re)arms the idle expiry.
// typing-started is only broadcast on the inactive→typing transition;
// repeated keystrokes just push the expiry forward.
func (b *TypingBroadcaster) StartTyping(roomID string, member Member) {
	key := typingKey(roomID, member.ID)
	val, _ := b.states.LoadOrStore(key, &typingState{member: member})
	state := val.(*typingState)

	state.mu.Lock()
	state.member = member
	state.gen++
	gen := state.gen
	wasActive := state.active
	state.active = true
	if state.timer != nil {
		state.timer.Stop()
	}
	state.timer = time.AfterFunc(b.idle, func() {
		b.expire(roomID, member.ID, gen)
	})
	state.mu.Unlock()

	if !wasActive {
		b.broadcast(roomID, EventTypingStarted, typingEvent{Room: roomID, Member: member})
	}
}

// StopTyping clears the state explicitly and broadcasts typing-stopped if
// the user was typing. Stopping an absent entry is a no-op.
func (b *TypingBroadcaster) StopTyping(roomID, userID string) {
	val, ok := b.states.Load(typingKey(roomID, userID))
	if !ok {
		return
	}
	state := val.(*typingState)

	state.mu.Lock()
	state.gen++
	wasActive := state.active
	state.active = false
	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}
	member := state.member
	state.mu.Unlock()

	if wasActive {
		b.broadcast(roomID, EventTypingStopped, typingEvent{Room: roomID, Member: member})
	}
}

// expire fires when the idle window passes with no further StartTyping.
func (b *TypingBroadcaster) expire(roomID, userID string, gen uint64) {
	val, ok := b.states.Load(typingKey(roomID, userID))
	if !ok {
		return
	}
	state := val.(*typingState)

	state.mu.Lock()
	if state.gen != gen || !state.active {
		state.mu.Unlock()
		return
	}
	state.active = false
	state.timer = nil
	member := state.member
	state.mu.Unlock()

	b.broadcast(roomID, EventTypingStopped, typingEvent{Room: roomID, Member: member})
}

// IsTyping reports whether the (room, user) entry is currently active.
func (b *TypingBroadcaster) IsTyping(roomID, userID string) bool {
	val, ok := b.states.Load(typingKey(roomID, userID))
	if !ok {
		return false
	}
	state := val.(*typingState)
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.active
}

func (b *TypingBroadcaster) broadcast(roomID, event string, payload any) {
	channel := PresenceRoomChannel(roomID)
	if err := b.transport.Publish(context.Background(), channel, event, payload); err != nil {
		logger.Warn("typing broadcast failed", "channel", channel, "event", event, "error", err)
	}
}
