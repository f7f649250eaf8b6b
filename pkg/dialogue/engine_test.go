package dialogue

import (
	"errors"
	"sync"
	"testing"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/conditionals"
	"github.com/jwebster45206/npc-engine/pkg/memory"
	"github.com/jwebster45206/npc-engine/pkg/relationship"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPlayer struct {
	level     int
	completed map[string]bool
	active    []string
}

func (p *testPlayer) Level() int                       { return p.level }
func (p *testPlayer) HasCompletedQuest(id string) bool { return p.completed[id] }
func (p *testPlayer) ItemCount(string) int             { return 0 }
func (p *testPlayer) StartQuest(id string) bool {
	for _, q := range p.active {
		if q == id {
			return false
		}
	}
	p.active = append(p.active, id)
	return true
}

const miraID = 1

type harness struct {
	engine  *Engine
	lib     *Library
	reg     *actor.Registry
	ledger  *relationship.Ledger
	mem     *memory.Store
	flags   *FlagStore
	history *HistoryStore
	player  *testPlayer
}

func newHarness(t *testing.T, traits []string, trees ...*Tree) *harness {
	t.Helper()
	h := &harness{
		lib:     NewLibrary(false),
		reg:     actor.NewRegistry(),
		ledger:  relationship.NewLedger(),
		mem:     memory.NewStore(),
		flags:   NewFlagStore(),
		history: NewHistoryStore(),
		player:  &testPlayer{level: 1, completed: map[string]bool{}},
	}
	require.NoError(t, h.reg.Register(&actor.Character{
		ID:          miraID,
		Name:        "Mira",
		Home:        "bakery",
		Personality: actor.NewPersonality(traits, 50, 70, 30),
	}))
	for _, tr := range trees {
		_, err := h.lib.Add(tr)
		require.NoError(t, err)
	}
	h.engine = NewEngine(Config{
		Library:  h.lib,
		Registry: h.reg,
		Ledger:   h.ledger,
		Memory:   h.mem,
		Flags:    h.flags,
		History:  h.history,
		Clock:    clock.New(clock.Timestamp{Day: 1, Hour: 9}),
		Player:   h.player,
	})
	return h
}

func greeting(name string, priority int, opts ...Option) *Tree {
	if len(opts) == 0 {
		opts = []Option{{Text: "Goodbye", Next: ExitTarget}}
	}
	return &Tree{
		Name:     name,
		Priority: priority,
		Nodes:    []Node{{ID: StartNodeID, Text: "Hello from " + name, Options: opts}},
	}
}

func TestStartSession_PicksHighestPriority(t *testing.T) {
	h := newHarness(t, nil, greeting("low", 1), greeting("high", 5))

	s, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)
	assert.Equal(t, "high", s.Tree)
	assert.Equal(t, StartNodeID, s.Node)
	assert.True(t, h.reg.IsConversing(miraID))
	assert.Equal(t, []string{"high", "low"}, h.engine.EligibleTrees(miraID))
}

func TestStartSession_TiesGoToFirstLoaded(t *testing.T) {
	h := newHarness(t, nil, greeting("first", 2), greeting("second", 2))

	s, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)
	assert.Equal(t, "first", s.Tree)
}

func TestStartSession_SpeakersRestrictAutomaticSelection(t *testing.T) {
	other := greeting("someone_else", 9)
	other.Speakers = []int{miraID + 1}
	h := newHarness(t, nil, other, greeting("open", 1))

	assert.Equal(t, []string{"open"}, h.engine.EligibleTrees(miraID))
	s, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)
	assert.Equal(t, "open", s.Tree)
}

func TestStartSession_SecondCallFails(t *testing.T) {
	h := newHarness(t, nil, greeting("only", 0))

	first, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)

	_, err = h.engine.StartSession(miraID, "")
	assert.ErrorIs(t, err, ErrSessionActive)

	current, ok := h.engine.Session()
	require.True(t, ok)
	assert.Equal(t, first, current)
}

func TestStartSession_UnloadedTreeFallsBack(t *testing.T) {
	h := newHarness(t, nil, greeting("low", 1), greeting("only", 3))

	s, err := h.engine.StartSession(miraID, "not_loaded")
	require.NoError(t, err)
	assert.Equal(t, "only", s.Tree)
	assert.Equal(t, StartNodeID, s.Node)
	assert.True(t, h.engine.Active())
}

func TestStartSession_ConcurrentStartsOpenOneSession(t *testing.T) {
	for run := 0; run < 50; run++ {
		h := newHarness(t, nil, greeting("only", 0))

		const callers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := h.engine.StartSession(miraID, "")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrSessionActive):
					conflicts++
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, 1, successes, "run %d", run)
		require.Equal(t, callers-1, conflicts, "run %d", run)
		assert.True(t, h.engine.Active())
	}
}

func TestStartSession_Errors(t *testing.T) {
	gated := greeting("gated", 0)
	gated.RequiredFlags = []string{"met_player"}

	h := newHarness(t, nil, gated)

	_, err := h.engine.StartSession(99, "")
	assert.ErrorIs(t, err, ErrUnknownCharacter)

	_, err = h.engine.StartSession(miraID, "missing")
	assert.ErrorIs(t, err, ErrNoEligibleTree)

	_, err = h.engine.StartSession(miraID, "")
	assert.ErrorIs(t, err, ErrNoEligibleTree)
	assert.False(t, h.engine.Active())
	assert.False(t, h.reg.IsConversing(miraID))

	h.flags.Add(miraID, "met_player")
	_, err = h.engine.StartSession(miraID, "")
	assert.NoError(t, err)
}

func TestStartSession_NamedTreeSkipsTreeConditions(t *testing.T) {
	tr := greeting("night_only", 0)
	tr.Conditions = []conditionals.Predicate{{Kind: conditionals.KindTimeOfDay, TimeOfDay: clock.Night}}
	h := newHarness(t, nil, tr)

	_, err := h.engine.StartSession(miraID, "")
	assert.ErrorIs(t, err, ErrNoEligibleTree)

	s, err := h.engine.StartSession(miraID, "night_only")
	require.NoError(t, err)
	assert.Equal(t, "night_only", s.Tree)
}

func TestStartSession_StartFlagsRolledBackWithoutNode(t *testing.T) {
	tr := &Tree{
		Name:       "locked",
		StartFlags: []string{"spoke_once"},
		Nodes: []Node{{
			ID:         StartNodeID,
			Text:       "You again.",
			Conditions: []conditionals.Predicate{{Kind: conditionals.KindFlag, Text: "trusted"}},
		}},
	}
	h := newHarness(t, nil, tr)

	_, err := h.engine.StartSession(miraID, "")
	assert.ErrorIs(t, err, ErrNoEligibleNode)
	assert.False(t, h.flags.Has(miraID, "spoke_once"))
	assert.False(t, h.engine.Active())
}

func TestStartSession_FallsBackToFirstQualifyingNode(t *testing.T) {
	tr := &Tree{
		Name:       "returning",
		StartFlags: []string{"visited"},
		Nodes: []Node{
			{ID: StartNodeID, Text: "First time?", Conditions: []conditionals.Predicate{
				{Kind: conditionals.KindFlag, Text: "visited", Absent: true},
			}},
			{ID: "welcome_back", Text: "Welcome back.", SetFlags: []string{"greeted"}},
		},
	}
	h := newHarness(t, nil, tr)

	s, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)
	assert.Equal(t, "welcome_back", s.Node)
	assert.Equal(t, []string{"visited", "greeted"}, h.flags.All(miraID))
}

func TestSelectOption_PreferredTraitBonus(t *testing.T) {
	tr := greeting("chat", 0, Option{
		Text:         "Your bread is the best in town",
		Next:         ExitTarget,
		Relationship: 10,
		Preferences:  &Preferences{PreferredTrait: "proud"},
	})
	h := newHarness(t, []string{"Proud"}, tr)

	_, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)

	out, err := h.engine.SelectOption(0)
	require.NoError(t, err)
	assert.Equal(t, 15, out.Delta)
	assert.Equal(t, 15, out.Relationship)
	assert.Equal(t, 15, h.ledger.Get(miraID, actor.PlayerID))
	assert.True(t, out.Ended)
}

func TestSelectOption_ConsequencesInOrder(t *testing.T) {
	tr := &Tree{
		Name: "errand",
		Nodes: []Node{
			{ID: StartNodeID, Text: "Could you help me?", Options: []Option{{
				Text:         "Of course",
				Next:         "thanks",
				Relationship: 5,
				Memory:       "The player agreed to fetch flour",
				Quest:        "fetch_flour",
				SetFlags:     []string{"flour_quest"},
			}}},
			{ID: "thanks", Text: "Thank you!", Emotion: "happy", SetFlags: []string{"thanked"}, Options: []Option{
				{Text: "Bye", Next: ExitTarget},
			}},
		},
	}
	h := newHarness(t, nil, tr)
	_, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)

	out, err := h.engine.SelectOption(0)
	require.NoError(t, err)
	assert.Equal(t, "thanks", out.Next)
	assert.True(t, out.QuestStarted)
	assert.False(t, out.Ended)

	mems := h.mem.All(miraID)
	require.Len(t, mems, 2)
	assert.Equal(t, "Relationship with the player changed by +5", mems[0].Text)
	assert.Equal(t, "The player agreed to fetch flour", mems[1].Text)
	assert.Equal(t, 5, mems[1].Impact)

	assert.Equal(t, []string{"fetch_flour"}, h.player.active)
	assert.Equal(t, []string{"flour_quest", "thanked"}, h.flags.All(miraID))

	hist := h.history.All(miraID)
	require.Len(t, hist, 1)
	assert.Equal(t, HistoryEntry{
		Tree:      "errand",
		Node:      StartNodeID,
		Option:    "Of course",
		Timestamp: clock.Timestamp{Day: 1, Hour: 9},
		Flags:     []string{"flour_quest"},
	}, hist[0])

	node, ok := h.engine.CurrentNode()
	require.True(t, ok)
	assert.Equal(t, "happy", node.Emotion)
}

func TestSelectOption_DanglingTargetEndsSession(t *testing.T) {
	tr := greeting("broken", 0, Option{Text: "Tell me more", Next: "nowhere"})
	h := newHarness(t, nil, tr)

	_, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)

	out, err := h.engine.SelectOption(0)
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.False(t, h.engine.Active())
	assert.False(t, h.reg.IsConversing(miraID))
	assert.Empty(t, h.engine.CurrentOptions())
}

func TestSelectOption_FiltersByConditions(t *testing.T) {
	tr := greeting("shop", 0,
		Option{Text: "Secret menu", Next: ExitTarget, Conditions: []conditionals.Predicate{
			{Kind: conditionals.KindRelationship, Op: conditionals.OpGreaterOrEqual, Value: 50},
		}},
		Option{Text: "Just browsing", Next: ExitTarget},
	)
	h := newHarness(t, nil, tr)
	_, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)

	opts := h.engine.CurrentOptions()
	require.Len(t, opts, 1)
	assert.Equal(t, "Just browsing", opts[0].Text)

	_, err = h.engine.SelectOption(1)
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.True(t, h.engine.Active())
	assert.Equal(t, 0, h.history.Count(miraID))
}

func TestSelectOption_NoSession(t *testing.T) {
	h := newHarness(t, nil, greeting("only", 0))
	_, err := h.engine.SelectOption(0)
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestEndSession_Idempotent(t *testing.T) {
	h := newHarness(t, nil, greeting("only", 0))
	_, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)

	assert.True(t, h.engine.EndSession())
	assert.False(t, h.engine.EndSession())
	assert.False(t, h.reg.IsConversing(miraID))

	_, err = h.engine.StartSession(miraID, "")
	assert.NoError(t, err)
}

func TestSubscribe_ReceivesTransitions(t *testing.T) {
	tr := &Tree{
		Name: "walk",
		Nodes: []Node{
			{ID: StartNodeID, Text: "Nice day.", Options: []Option{{Text: "It is", Next: "two"}}},
			{ID: "two", Text: "Shall we?", Options: []Option{{Text: "Bye", Next: ExitTarget}}},
		},
	}
	h := newHarness(t, nil, tr)
	events, cancel := h.engine.Subscribe(8)
	defer cancel()

	s, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)
	_, err = h.engine.SelectOption(0)
	require.NoError(t, err)
	_, err = h.engine.SelectOption(0)
	require.NoError(t, err)

	var got []EventType
	for range 3 {
		ev := <-events
		assert.Equal(t, s.ID, ev.SessionID)
		got = append(got, ev.Type)
	}
	assert.Equal(t, []EventType{EventSessionStarted, EventNodeChanged, EventSessionEnded}, got)
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	h := newHarness(t, nil, greeting("only", 0))
	events, cancel := h.engine.Subscribe(1)
	cancel()
	cancel()

	_, ok := <-events
	assert.False(t, ok)

	_, err := h.engine.StartSession(miraID, "")
	assert.NoError(t, err)
}

func TestReset_KeepsSessionWhenRestoreFails(t *testing.T) {
	h := newHarness(t, nil, greeting("only", 0))
	before, err := h.engine.StartSession(miraID, "")
	require.NoError(t, err)

	failed := errors.New("bad state")
	assert.ErrorIs(t, h.engine.Reset(func() error { return failed }), failed)
	current, ok := h.engine.Session()
	require.True(t, ok)
	assert.Equal(t, before, current)
	assert.True(t, h.reg.IsConversing(miraID))

	require.NoError(t, h.engine.Reset(func() error { return nil }))
	assert.False(t, h.engine.Active())
	assert.False(t, h.reg.IsConversing(miraID))
}
