package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const bridgeChannel = "taskify-events"

// envelope wraps an outbound event for cross-instance transport. The
// origin id lets an instance skip events it published itself.
type envelope struct {
	Origin   string       `json:"origin"`
	Dest     Destination  `json:"dest"`
	GroupId  string       `json:"group_id,omitempty"`
	Identity string       `json:"identity,omitempty"`
	Event    *ServerEvent `json:"event"`
}

// Bridge replicates gateway fan-out across server instances over Redis
// pub/sub. Each instance publishes its broadcasts and re-delivers
// foreign ones to its local subscribers.
type Bridge struct {
	log    *log.Logger
	rdb    *redis.Client
	origin string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewBridge(logger *log.Logger, addr string) (*Bridge, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Bridge{
		log:    logger,
		rdb:    rdb,
		origin: uuid.NewString(),
		done:   make(chan struct{}),
	}, nil
}

// Publish forwards an outbound event to all other instances.
func (b *Bridge) Publish(out Outbound) error {
	payload, err := json.Marshal(envelope{
		Origin:   b.origin,
		Dest:     out.Dest,
		GroupId:  out.GroupId,
		Identity: out.Identity,
		Event:    out.Event,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return b.rdb.Publish(context.Background(), bridgeChannel, payload).Err()
}

// Run consumes foreign envelopes and hands them to deliver. It returns
// when the bridge is closed.
func (b *Bridge) Run(deliver func(Outbound)) {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	defer close(b.done)

	pubsub := b.rdb.Subscribe(ctx, bridgeChannel)
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

			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Println("bridge: bad envelope:", err)
				continue
			}

			if env.Origin == b.origin {
				continue
			}

			deliver(Outbound{
				Dest:     env.Dest,
				GroupId:  env.GroupId,
				Identity: env.Identity,
				Event:    env.Event,
			})
		}
	}
}

func (b *Bridge) Close() error {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
	return b.rdb.Close()
}
