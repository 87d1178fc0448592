package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptGuard serializes checkout attempts. Begin rejects a dispatch while
// the same attempt is still in flight; OrderID hands back the same order id
// for every retry of one attempt, so a user-initiated retry replays the
// idempotent create-order call instead of minting a duplicate order.
type AttemptGuard interface {
	Begin(ctx context.Context, attemptID string) (bool, error)
	OrderID(ctx context.Context, attemptID string, mint func() string) (string, error)
	Finish(ctx context.Context, attemptID string)
}

const (
	// An attempt that is still "in flight" after this long is assumed dead
	// (the two outbound calls time out at 10s each).
	inflightTTL = 2 * time.Minute
	// How long a retry of the same attempt keeps reusing its order id.
	orderIDTTL = time.Hour
)

// RedisAttemptGuard backs the guard with Redis so it holds across replicas.
type RedisAttemptGuard struct {
	client *redis.Client
}

func NewRedisAttemptGuard(client *redis.Client) *RedisAttemptGuard {
	return &RedisAttemptGuard{client: client}
}

func inflightKey(attemptID string) string {
	return fmt.Sprintf("attempt:inflight:%s", attemptID)
}

func orderIDKey(attemptID string) string {
	return fmt.Sprintf("attempt:order:%s", attemptID)
}

func (g *RedisAttemptGuard) Begin(ctx context.Context, attemptID string) (bool, error) {
	return g.client.SetNX(ctx, inflightKey(attemptID), "1", inflightTTL).Result()
}

func (g *RedisAttemptGuard) OrderID(ctx context.Context, attemptID string, mint func() string) (string, error) {
	key := orderIDKey(attemptID)
	id, err := g.client.Get(ctx, key).Result()
	if err == nil {
		return id, nil
	}
	if err != redis.Nil {
		return "", err
	}

	id = mint()
	// SetNX so two racing dispatches of one attempt agree on a single id.
	set, err := g.client.SetNX(ctx, key, id, orderIDTTL).Result()
	if err != nil {
		return "", err
	}
	if !set {
		return g.client.Get(ctx, key).Result()
	}
	return id, nil
}

func (g *RedisAttemptGuard) Finish(ctx context.Context, attemptID string) {
	g.client.Del(ctx, inflightKey(attemptID))
}

// MemoryAttemptGuard is a single-process guard for local development and
// tests. Entries are never expired; a restart clears them.
type MemoryAttemptGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	orderIDs map[string]string
}

func NewMemoryAttemptGuard() *MemoryAttemptGuard {
	return &MemoryAttemptGuard{
		inflight: make(map[string]struct{}),
		orderIDs: make(map[string]string),
	}
}

func (g *MemoryAttemptGuard) Begin(ctx context.Context, attemptID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inflight[attemptID]; ok {
		return false, nil
	}
	g.inflight[attemptID] = struct{}{}
	return true, nil
}

func (g *MemoryAttemptGuard) OrderID(ctx context.Context, attemptID string, mint func() string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.orderIDs[attemptID]; ok {
		return id, nil
	}
	id := mint()
	g.orderIDs[attemptID] = id
	return id, nil
}

func (g *MemoryAttemptGuard) Finish(ctx context.Context, attemptID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, attemptID)
}
