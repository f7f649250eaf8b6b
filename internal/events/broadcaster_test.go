package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/npc-engine/pkg/dialogue"
	"github.com/jwebster45206/npc-engine/pkg/world"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBroadcaster_Forward(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := client.Subscribe(ctx, Channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	msgs := sub.Channel()

	dialogueCh := make(chan dialogue.Event, 1)
	worldCh := make(chan world.Event, 1)
	done := make(chan struct{})
	go func() {
		NewBroadcaster(client, testLogger()).Forward(ctx, dialogueCh, worldCh)
		close(done)
	}()

	dialogueCh <- dialogue.Event{Type: dialogue.EventSessionStarted, CharacterID: 1, Tree: "chat", Node: "start"}
	worldCh <- world.Event{Type: world.EventDayRollover, Day: 2}

	got := map[string]json.RawMessage{}
	for len(got) < 2 {
		select {
		case msg := <-msgs:
			var ev Event
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
			got[ev.Type] = ev.Data
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %d events", len(got))
		}
	}

	var started dialogue.Event
	require.NoError(t, json.Unmarshal(got[string(dialogue.EventSessionStarted)], &started))
	assert.Equal(t, "chat", started.Tree)

	var day world.Event
	require.NoError(t, json.Unmarshal(got[string(world.EventDayRollover)], &day))
	assert.Equal(t, 2, day.Day)

	close(dialogueCh)
	close(worldCh)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Forward did not return after channels closed")
	}
}

func TestBroadcaster_PublishFailure(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	err := NewBroadcaster(client, testLogger()).PublishWorld(context.Background(), world.Event{Type: world.EventSaved})
	assert.Error(t, err)
}
