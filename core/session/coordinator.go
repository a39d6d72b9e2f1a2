package session

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"log/slog"

	"github.com/mufaro-dev/wabank/core/logger"
)

// ErrNoProcessor is returned when a message arrives before a processor has
// been registered. This is a configuration error, not a user error.
var ErrNoProcessor = errors.New("session: processor not registered")

const lockStripes = 64

// Coordinator orchestrates one inbound message: it resolves the session,
// invokes the processor, applies the returned patch, and persists or tears
// down the session. Turns for the same key are serialized with a striped
// mutex so concurrent messages cannot interleave a read-modify-write.
type Coordinator struct {
	store Store
	proc  Processor
	locks [lockStripes]sync.Mutex
}

// NewCoordinator wires a coordinator over the given store and processor.
func NewCoordinator(store Store, proc Processor) *Coordinator {
	return &Coordinator{store: store, proc: proc}
}

// HandleMessage runs one turn of conversation and returns the reply text.
func (c *Coordinator) HandleMessage(ctx context.Context, providerID, consumerID string, payload Payload) (string, error) {
	if c.proc == nil {
		return "", ErrNoProcessor
	}

	key := Key{ProviderID: providerID, ConsumerID: consumerID}
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.store.GetOrCreate(ctx, key)
	if err != nil {
		return "", err
	}

	res, err := c.proc.Process(ctx, key, sess.State, payload, sess.Data)
	if err != nil {
		return "", err
	}

	for k, v := range res.Patch {
		if v == nil {
			delete(sess.Data, k)
			continue
		}
		sess.Data[k] = v
	}
	sess.State = res.Next

	if res.Next == StateNone {
		if err := c.store.Delete(ctx, key); err != nil {
			return "", err
		}
	} else if err := c.store.Save(ctx, key, sess); err != nil {
		return "", err
	}

	logger.Debug(ctx, "session", "turn.done",
		slog.String("consumer_id", consumerID),
		slog.String("next_state", string(res.Next)),
	)

	return res.Reply, nil
}

func (c *Coordinator) lockFor(key Key) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.String()))
	return &c.locks[h.Sum32()%lockStripes]
}
