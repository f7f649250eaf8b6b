package dialogue

import (
	"github.com/google/uuid"
	"github.com/jwebster45206/npc-engine/pkg/clock"
)

type EventType string

const (
	EventSessionStarted EventType = "session.started"
	EventNodeChanged    EventType = "node.changed"
	EventSessionEnded   EventType = "session.ended"
)

// Reasons carried by EventSessionEnded.
const (
	EndReasonExit        = "exit"
	EndReasonUnavailable = "node_unavailable"
	EndReasonClosed      = "closed"
	EndReasonReset       = "reset"
)

// Event notifies presentation layers of a dialogue transition.
type Event struct {
	Type          EventType       `json:"type"`
	SessionID     uuid.UUID       `json:"session_id"`
	CharacterID   int             `json:"character_id"`
	CharacterName string          `json:"character_name"`
	Tree          string          `json:"tree"`
	Node          string          `json:"node,omitempty"`
	Text          string          `json:"text,omitempty"`
	Emotion       string          `json:"emotion,omitempty"`
	Options       []string        `json:"options,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	At            clock.Timestamp `json:"at"`
}

// Subscribe registers a listener. Events are dropped for listeners whose
// buffer is full. Call cancel to unsubscribe and close the channel.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.log.Warn("Dropping dialogue event for slow subscriber", "subscriber", id, "type", ev.Type)
		}
	}
}
