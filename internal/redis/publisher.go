package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ballsim/backend/internal/sim"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// EventsChannel carries sim.Notice values as JSON.
const EventsChannel = "sim_events"

var ErrSnapshotNotFound = errors.New("snapshot not found")

func snapshotKey(simID string) string {
	return "sim:" + simID + ":snapshot"
}

// Publisher fans notices out over pub/sub and caches the latest snapshot of
// every simulation so other instances can answer state queries.
type Publisher struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPublisher(rdb *redis.Client, snapshotTTL time.Duration) *Publisher {
	if snapshotTTL <= 0 {
		snapshotTTL = time.Minute
	}
	return &Publisher{rdb: rdb, ttl: snapshotTTL}
}

func (p *Publisher) Notify(ctx context.Context, n sim.Notice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}
	if err := p.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s for %s: %w", n.Type, n.SimID, err)
	}
	return nil
}

func (p *Publisher) SaveSnapshot(ctx context.Context, simID string, snap sim.Snapshot) error {
	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := p.rdb.SetEx(ctx, snapshotKey(simID), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot for %s: %w", simID, err)
	}
	return nil
}

// LoadSnapshot returns ErrSnapshotNotFound once the cached state has expired.
func (p *Publisher) LoadSnapshot(ctx context.Context, simID string) (sim.Snapshot, error) {
	var snap sim.Snapshot
	data, err := p.rdb.Get(ctx, snapshotKey(simID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return snap, ErrSnapshotNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("load snapshot for %s: %w", simID, err)
	}
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot for %s: %w", simID, err)
	}
	return snap, nil
}

// DeleteSnapshot drops the cached state of a stopped simulation.
func (p *Publisher) DeleteSnapshot(ctx context.Context, simID string) error {
	return p.rdb.Del(ctx, snapshotKey(simID)).Err()
}

// Subscribe decodes notices from EventsChannel until ctx is done. The returned
// channel is closed when the subscription ends.
func Subscribe(ctx context.Context, rdb *redis.Client) <-chan sim.Notice {
	out := make(chan sim.Notice, 64)
	pubsub := rdb.Subscribe(ctx, EventsChannel)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				n, err := DecodeNotice([]byte(msg.Payload))
				if err != nil {
					log.Printf("[REDIS] %v", err)
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// DecodeNotice parses one pub/sub payload.
func DecodeNotice(payload []byte) (sim.Notice, error) {
	var n sim.Notice
	if err := json.Unmarshal(payload, &n); err != nil {
		return n, fmt.Errorf("invalid notice payload: %w", err)
	}
	if n.Type == "" || n.SimID == "" {
		return n, fmt.Errorf("invalid notice payload: missing type or sim_id")
	}
	return n, nil
}
