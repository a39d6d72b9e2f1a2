package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processorFunc func(ctx context.Context, key Key, state State, payload Payload, data Data) (Result, error)

func (f processorFunc) Process(ctx context.Context, key Key, state State, payload Payload, data Data) (Result, error) {
	return f(ctx, key, state, payload, data)
}

func TestCoordinatorRequiresProcessor(t *testing.T) {
	c := NewCoordinator(NewMemoryStore(), nil)
	_, err := c.HandleMessage(context.Background(), "bot", "263770000001", Payload{Message: "hi"})
	assert.ErrorIs(t, err, ErrNoProcessor)
}

func TestCoordinatorMergesPatchAcrossTurns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var seen []Data
	proc := processorFunc(func(_ context.Context, _ Key, state State, payload Payload, data Data) (Result, error) {
		copied := Data{}
		for k, v := range data {
			copied[k] = v
		}
		seen = append(seen, copied)

		switch payload.Message {
		case "first":
			return Result{Next: "step", Reply: "one", Patch: Data{"amount": int64(1000)}}, nil
		case "second":
			return Result{Next: "step", Reply: "two", Patch: Data{"wallet": "0770000001"}}, nil
		default:
			return Result{Next: "step", Reply: "drop", Patch: Data{"amount": nil}}, nil
		}
	})

	c := NewCoordinator(store, proc)
	for _, msg := range []string{"first", "second", "third"} {
		_, err := c.HandleMessage(ctx, "bot", "263770000001", Payload{Message: msg})
		require.NoError(t, err)
	}

	require.Len(t, seen, 3)
	assert.Empty(t, seen[0])
	assert.Equal(t, Data{"amount": int64(1000)}, seen[1])
	assert.Equal(t, Data{"amount": int64(1000), "wallet": "0770000001"}, seen[2])

	// The nil patch value in the third turn must delete the key.
	final, err := store.GetOrCreate(ctx, Key{ProviderID: "bot", ConsumerID: "263770000001"})
	require.NoError(t, err)
	assert.NotContains(t, final.Data, "amount")
	assert.Equal(t, "0770000001", final.Data["wallet"])
}

func TestCoordinatorTearsDownTerminalSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	proc := processorFunc(func(_ context.Context, _ Key, state State, payload Payload, _ Data) (Result, error) {
		if payload.Message == "bye" {
			return Result{Next: StateNone, Reply: "goodbye"}, nil
		}
		return Result{Next: "menu", Reply: "menu", Patch: Data{"amount": int64(1)}}, nil
	})

	c := NewCoordinator(store, proc)
	key := Key{ProviderID: "bot", ConsumerID: "263770000001"}

	_, err := c.HandleMessage(ctx, key.ProviderID, key.ConsumerID, Payload{Message: "hi"})
	require.NoError(t, err)

	reply, err := c.HandleMessage(ctx, key.ProviderID, key.ConsumerID, Payload{Message: "bye"})
	require.NoError(t, err)
	assert.Equal(t, "goodbye", reply)

	fresh, err := store.GetOrCreate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StateNone, fresh.State)
	assert.Empty(t, fresh.Data)
}

func TestCoordinatorSerializesTurnsPerKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Each turn reads the counter and writes it back incremented. Interleaved
	// read-modify-write turns would lose increments.
	proc := processorFunc(func(_ context.Context, _ Key, _ State, _ Payload, data Data) (Result, error) {
		n, _ := data["n"].(int64)
		return Result{Next: "menu", Patch: Data{"n": n + 1}}, nil
	})

	c := NewCoordinator(store, proc)
	key := Key{ProviderID: "bot", ConsumerID: "263770000001"}

	const turns = 50
	var wg sync.WaitGroup
	wg.Add(turns)
	for i := 0; i < turns; i++ {
		go func() {
			defer wg.Done()
			_, err := c.HandleMessage(ctx, key.ProviderID, key.ConsumerID, Payload{Message: "x"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := store.GetOrCreate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(turns), final.Data["n"])
}
