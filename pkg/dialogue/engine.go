package dialogue

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/conditionals"
	"github.com/jwebster45206/npc-engine/pkg/memory"
	"github.com/jwebster45206/npc-engine/pkg/relationship"
)

var (
	ErrSessionActive    = errors.New("a dialogue session is already active")
	ErrNoSession        = errors.New("no active dialogue session")
	ErrUnknownCharacter = errors.New("unknown character")
	ErrNoEligibleTree   = errors.New("no eligible dialogue tree")
	ErrNoEligibleNode   = errors.New("no eligible dialogue node")
	ErrInvalidOption    = errors.New("invalid dialogue option")
)

// Player is the player state dialogue reads and mutates.
type Player interface {
	conditionals.PlayerView
	StartQuest(questID string) bool
}

// Config wires an Engine to the shared simulation state.
type Config struct {
	Library  *Library
	Registry *actor.Registry
	Ledger   *relationship.Ledger
	Memory   *memory.Store
	Flags    *FlagStore
	History  *HistoryStore
	Clock    *clock.Clock
	Player   Player
	Logger   *slog.Logger
}

// Session describes the active conversation.
type Session struct {
	ID          uuid.UUID       `json:"id"`
	CharacterID int             `json:"character_id"`
	Tree        string          `json:"tree"`
	Node        string          `json:"node"`
	StartedAt   clock.Timestamp `json:"started_at"`
}

// Outcome reports what selecting an option did.
type Outcome struct {
	Delta        int    `json:"delta"`
	Relationship int    `json:"relationship"`
	QuestStarted bool   `json:"quest_started,omitempty"`
	Next         string `json:"next,omitempty"`
	Ended        bool   `json:"ended"`
}

type session struct {
	id        uuid.UUID
	character *actor.Character
	tree      *Tree
	node      *Node
	startedAt clock.Timestamp
}

// Engine runs at most one conversation at a time. It is idle when no session
// is active. All transitions happen under a single lock so a selection's
// consequences are never observed half-applied.
type Engine struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	active *session

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func NewEngine(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log, subs: make(map[int]chan Event)}
}

// subject adapts a character to conditionals.CharacterView.
type subject struct {
	e  *Engine
	id int
}

func (s subject) RelationshipWithPlayer() int {
	return s.e.cfg.Ledger.Get(s.id, actor.PlayerID)
}

func (s subject) RemembersText(substr string) bool {
	return s.e.cfg.Memory.ContainsText(s.id, substr)
}

func (s subject) HasFlag(flag string) bool {
	return s.e.cfg.Flags.Has(s.id, flag)
}

func (s subject) DialogueCount() int {
	return s.e.cfg.History.Count(s.id)
}

func (e *Engine) passes(id int, preds []conditionals.Predicate) bool {
	var clk conditionals.ClockView
	if e.cfg.Clock != nil {
		clk = e.cfg.Clock
	}
	return conditionals.EvaluateAll(preds, subject{e: e, id: id}, e.cfg.Player, clk)
}

func (e *Engine) treeEligible(id int, t *Tree) bool {
	if !t.SpokenBy(id) {
		return false
	}
	for _, f := range t.RequiredFlags {
		if !e.cfg.Flags.Has(id, f) {
			return false
		}
	}
	return e.passes(id, t.Conditions)
}

// EligibleTrees lists the trees a character could open with right now,
// in the order StartSession would prefer them.
func (e *Engine) EligibleTrees(characterID int) []string {
	var out []string
	var prio []int
	for _, t := range e.cfg.Library.Trees() {
		if !e.treeEligible(characterID, t) {
			continue
		}
		i := len(out)
		for i > 0 && prio[i-1] < t.Priority {
			i--
		}
		out = append(out[:i], append([]string{t.Name}, out[i:]...)...)
		prio = append(prio[:i], append([]int{t.Priority}, prio[i:]...)...)
	}
	return out
}

func (e *Engine) selectTree(characterID int) *Tree {
	var best *Tree
	for _, t := range e.cfg.Library.Trees() {
		if !e.treeEligible(characterID, t) {
			continue
		}
		if best == nil || t.Priority > best.Priority {
			best = t
		}
	}
	return best
}

func (e *Engine) selectNode(characterID int, t *Tree) *Node {
	if n, ok := t.Node(StartNodeID); ok && e.passes(characterID, n.Conditions) {
		return n
	}
	for i := range t.Nodes {
		if t.Nodes[i].ID == StartNodeID {
			continue
		}
		if e.passes(characterID, t.Nodes[i].Conditions) {
			return &t.Nodes[i]
		}
	}
	return nil
}

// StartSession opens a conversation with a character. A loaded treeName is
// used as-is; otherwise the highest-priority eligible tree is picked, earliest
// loaded on ties. On error nothing is changed.
func (e *Engine) StartSession(characterID int, treeName string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return Session{}, ErrSessionActive
	}
	ch, ok := e.cfg.Registry.Get(characterID)
	if !ok {
		return Session{}, fmt.Errorf("%w: %d", ErrUnknownCharacter, characterID)
	}

	var tree *Tree
	if treeName != "" {
		if tree, ok = e.cfg.Library.Get(treeName); !ok {
			e.log.Warn("Dialogue tree not loaded, selecting automatically",
				"character_id", characterID,
				"tree", treeName)
		}
	}
	if tree == nil {
		if tree = e.selectTree(characterID); tree == nil {
			return Session{}, ErrNoEligibleTree
		}
	}

	added := e.cfg.Flags.Add(characterID, tree.StartFlags...)
	node := e.selectNode(characterID, tree)
	if node == nil {
		e.cfg.Flags.rollback(characterID, added)
		return Session{}, fmt.Errorf("%w in tree %q", ErrNoEligibleNode, tree.Name)
	}
	e.cfg.Flags.Add(characterID, node.SetFlags...)

	e.active = &session{
		id:        uuid.New(),
		character: ch,
		tree:      tree,
		node:      node,
		startedAt: e.now(),
	}
	e.cfg.Registry.SetConversing(characterID, true)

	e.log.Info("Dialogue session started",
		"session_id", e.active.id,
		"character_id", characterID,
		"tree", tree.Name,
		"node", node.ID)
	e.publish(e.eventLocked(EventSessionStarted, ""))
	return e.sessionLocked(), nil
}

// Session returns the active session, if any.
func (e *Engine) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return Session{}, false
	}
	return e.sessionLocked(), true
}

// Active reports whether a conversation is in progress.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// CurrentNode returns a copy of the node being spoken.
func (e *Engine) CurrentNode() (Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return Node{}, false
	}
	n := *e.active.node
	n.Options = e.optionsLocked()
	return n, true
}

// CurrentOptions returns the options whose conditions pass right now, in
// authored order. It is empty when idle.
func (e *Engine) CurrentOptions() []Option {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.optionsLocked()
}

func (e *Engine) optionsLocked() []Option {
	if e.active == nil {
		return nil
	}
	var out []Option
	for _, o := range e.active.node.Options {
		if e.passes(e.active.character.ID, o.Conditions) {
			out = append(out, o)
		}
	}
	return out
}

// SelectOption applies the consequences of the index-th current option and
// moves the conversation along. Consequences are applied in order:
// relationship, memory, quest, flags, history.
func (e *Engine) SelectOption(index int) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return Outcome{}, ErrNoSession
	}
	opts := e.optionsLocked()
	if index < 0 || index >= len(opts) {
		return Outcome{}, fmt.Errorf("%w: %d of %d", ErrInvalidOption, index, len(opts))
	}
	opt := opts[index]
	s := e.active
	id := s.character.ID
	now := e.now()
	var out Outcome

	out.Delta = opt.Preferences.Adjust(opt.Relationship, s.character.Personality)
	if out.Delta != 0 {
		e.cfg.Ledger.Modify(id, actor.PlayerID, out.Delta)
		e.cfg.Memory.Add(id, fmt.Sprintf("Relationship with the player changed by %+d", out.Delta),
			out.Delta, "relationship", now)
	}
	out.Relationship = e.cfg.Ledger.Get(id, actor.PlayerID)

	if opt.Memory != "" {
		e.cfg.Memory.Add(id, opt.Memory, opt.Relationship, "dialogue:"+s.tree.Name, now)
	}

	if opt.Quest != "" && e.cfg.Player != nil {
		out.QuestStarted = e.cfg.Player.StartQuest(opt.Quest)
		if out.QuestStarted {
			e.log.Info("Quest started from dialogue", "character_id", id, "quest", opt.Quest)
		}
	}

	e.cfg.Flags.Add(id, opt.SetFlags...)

	e.cfg.History.Add(id, HistoryEntry{
		Tree:      s.tree.Name,
		Node:      s.node.ID,
		Option:    opt.Text,
		Timestamp: now,
		Flags:     opt.SetFlags,
	})

	if opt.IsExit() {
		e.endLocked(EndReasonExit)
		out.Ended = true
		return out, nil
	}

	next, ok := s.tree.Node(opt.Next)
	if !ok || !e.passes(id, next.Conditions) {
		e.log.Warn("Dialogue target unavailable, ending session",
			"character_id", id,
			"tree", s.tree.Name,
			"next", opt.Next,
			"exists", ok)
		e.endLocked(EndReasonUnavailable)
		out.Ended = true
		return out, nil
	}

	e.cfg.Flags.Add(id, next.SetFlags...)
	s.node = next
	out.Next = next.ID
	e.log.Debug("Dialogue node changed", "character_id", id, "tree", s.tree.Name, "node", next.ID)
	e.publish(e.eventLocked(EventNodeChanged, ""))
	return out, nil
}

// EndSession ends the active conversation. It reports whether one was active.
func (e *Engine) EndSession() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return false
	}
	e.endLocked(EndReasonClosed)
	return true
}

// Freeze runs fn while no transition can happen, so reads across the
// ledger, memories, flags and history see a consistent state.
func (e *Engine) Freeze(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Reset runs fn while no transition can happen. If fn succeeds any active
// session is ended; if it fails the session is left as it was.
func (e *Engine) Reset(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	if e.active != nil {
		e.endLocked(EndReasonReset)
	}
	return nil
}

func (e *Engine) endLocked(reason string) {
	ev := e.eventLocked(EventSessionEnded, reason)
	e.cfg.Registry.SetConversing(e.active.character.ID, false)
	e.log.Info("Dialogue session ended",
		"session_id", e.active.id,
		"character_id", e.active.character.ID,
		"reason", reason)
	e.active = nil
	e.publish(ev)
}

func (e *Engine) sessionLocked() Session {
	return Session{
		ID:          e.active.id,
		CharacterID: e.active.character.ID,
		Tree:        e.active.tree.Name,
		Node:        e.active.node.ID,
		StartedAt:   e.active.startedAt,
	}
}

func (e *Engine) eventLocked(t EventType, reason string) Event {
	s := e.active
	ev := Event{
		Type:          t,
		SessionID:     s.id,
		CharacterID:   s.character.ID,
		CharacterName: s.character.Name,
		Tree:          s.tree.Name,
		Reason:        reason,
		At:            e.now(),
	}
	if t != EventSessionEnded {
		ev.Node = s.node.ID
		ev.Text = s.node.Text
		ev.Emotion = s.node.Emotion
		for _, o := range e.optionsLocked() {
			ev.Options = append(ev.Options, o.Text)
		}
	}
	return ev
}

func (e *Engine) now() clock.Timestamp {
	if e.cfg.Clock == nil {
		return clock.Timestamp{}
	}
	return e.cfg.Clock.Now()
}
