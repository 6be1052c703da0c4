package ws

import (
	"context"
	"log"

	simredis "github.com/ballsim/backend/internal/redis"
	"github.com/ballsim/backend/internal/sim"
	"github.com/redis/go-redis/v9"
)

// StartEventSubscriber relays notices published on the Redis bus to local viewers.
// Every instance runs one, so viewers connected anywhere see every notice.
func StartEventSubscriber(ctx context.Context, rdb *redis.Client, h *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	notices := simredis.Subscribe(ctx, rdb)
	go func() {
		log.Printf("[WS] %s subscriber started", simredis.EventsChannel)
		for n := range notices {
			if n.Type != sim.NoticeStats {
				log.Printf("[WS] event received: type=%s sim_id=%s", n.Type, n.SimID)
			}
			h.BroadcastNotice(n)
		}
		log.Printf("[WS] %s subscriber stopped", simredis.EventsChannel)
	}()
}
