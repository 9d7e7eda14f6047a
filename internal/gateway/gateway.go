package gateway

import (
	"context"
	"log"
	"sync"

	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/stats"
	"github.com/taskify/taskify/internal/types"
)

// Metric names registered by the gateway.
const (
	MetricNumConnections      = "NumConnections"
	MetricNumChannels         = "NumChannels"
	MetricNumMessagesSent     = "NumMessagesSent"
	MetricNumEventsDispatched = "NumEventsDispatched"
)

// Gateway authenticates no connections itself; callers hand it
// already-authenticated clients. It owns the presence registry and the
// channel subscription maps, routes inbound events and fans out
// REST-driven pushes. Channel membership mirrors persisted group
// membership: synchronized at connect time, then patched incrementally
// by the REST handlers. It is re-verified only on sendMessage.
type Gateway struct {
	log      *log.Logger
	db       database.TaskifyRepository
	stats    stats.StatsProvider
	presence *PresenceRegistry

	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}

	bridge *Bridge
}

func NewGateway(logger *log.Logger, db database.TaskifyRepository, su stats.StatsProvider) (*Gateway, error) {
	su.RegisterMetric(MetricNumConnections)
	su.RegisterMetric(MetricNumChannels)
	su.RegisterMetric(MetricNumMessagesSent)
	su.RegisterMetric(MetricNumEventsDispatched)

	return &Gateway{
		log:      logger,
		db:       db,
		stats:    su,
		presence: NewPresenceRegistry(),
		channels: make(map[string]map[*Client]struct{}),
	}, nil
}

// SetBridge attaches a cross-instance broadcast bridge and starts its
// subscriber loop.
func (g *Gateway) SetBridge(b *Bridge) {
	g.bridge = b
	go b.Run(func(out Outbound) {
		g.deliverLocal(nil, out)
	})
}

// Presence exposes the registry for lookups by the REST layer.
func (g *Gateway) Presence() *PresenceRegistry {
	return g.presence
}

// RegisterClient records presence for the client's identity (displacing
// any prior connection) and subscribes it to the channels of every
// group where the identity holds an active membership.
func (g *Gateway) RegisterClient(ctx context.Context, c *Client) error {
	if prev := g.presence.Register(c.user.Email, c); prev != nil {
		g.log.Printf("displacing previous connection for %q", c.user.Email)
		g.dropFromAllChannels(prev)
		prev.stopClient()
	}
	g.stats.Incr(MetricNumConnections)

	groups, err := g.db.ListGroupsByMember(ctx, c.user.Email, types.MemberActive)
	if err != nil {
		return err
	}

	for _, group := range groups {
		g.subscribe(c, group.Id.Hex())
	}

	g.log.Printf("registered connection for %q in %d channels", c.user.Email, len(groups))
	return nil
}

// UnregisterClient removes the client from the presence registry and
// every channel. A stale handle displaced by a reconnect only drops its
// channel subscriptions.
func (g *Gateway) UnregisterClient(c *Client) {
	if g.presence.UnregisterClient(c.user.Email, c) {
		g.stats.Decr(MetricNumConnections)
		g.log.Printf("unregistered connection for %q", c.user.Email)
	}
	g.dropFromAllChannels(c)
}

// Dispatch routes one inbound event from a connection, applies the
// resulting subscription changes and delivers the outbound events.
func (g *Gateway) Dispatch(c *Client, ev *ClientEvent) {
	subs, outs := routeEvent(context.Background(), g.db, c.user, ev)

	for _, sc := range subs {
		if sc.subscribe {
			g.subscribe(c, sc.groupId)
		} else {
			g.unsubscribe(c, sc.groupId)
		}
	}

	for _, out := range outs {
		g.fanout(c, out)
	}

	g.stats.Incr(MetricNumEventsDispatched)
	if ev.Send != nil && len(outs) == 1 && outs[0].Dest == DestChannel {
		g.stats.Incr(MetricNumMessagesSent)
	}
}

// SubscribeIdentity adds the identity's live connection, if any, to the
// group's channel. Used by REST flows (group creation, invitation
// accepted).
func (g *Gateway) SubscribeIdentity(email, groupId string) {
	if c, ok := g.presence.Lookup(email); ok {
		g.subscribe(c, groupId)
	}
}

// UnsubscribeIdentity removes the identity's live connection, if any,
// from the group's channel. Used by REST flows (leave, removal).
func (g *Gateway) UnsubscribeIdentity(email, groupId string) {
	if c, ok := g.presence.Lookup(email); ok {
		g.unsubscribe(c, groupId)
	}
}

// NotifyIdentity pushes a private event to the identity's connection.
// Reports whether a local connection received it.
func (g *Gateway) NotifyIdentity(email string, ev *ServerEvent) bool {
	out := Outbound{Dest: DestIdentity, Identity: email, Event: ev}
	delivered := g.deliverLocal(nil, out)
	g.publish(out)
	return delivered
}

// BroadcastGroup pushes an event to every subscriber of the group's
// channel.
func (g *Gateway) BroadcastGroup(groupId string, ev *ServerEvent) {
	g.fanout(nil, Outbound{Dest: DestChannel, GroupId: groupId, Event: ev})
}

// BroadcastAll pushes an event to every connected client.
func (g *Gateway) BroadcastAll(ev *ServerEvent) {
	g.fanout(nil, Outbound{Dest: DestAll, Event: ev})
}

// DisconnectIdentity force-closes the identity's connection, if any.
// Used by logout.
func (g *Gateway) DisconnectIdentity(email string) {
	if c, ok := g.presence.Lookup(email); ok {
		g.log.Printf("force-disconnecting %q", email)
		c.stopClient()
	}
}

// fanout delivers locally and forwards to the bridge so subscribers on
// other instances see the event too.
func (g *Gateway) fanout(sender *Client, out Outbound) {
	g.deliverLocal(sender, out)
	g.publish(out)
}

func (g *Gateway) publish(out Outbound) {
	// sender-only events are never cross-instance
	if g.bridge == nil || out.Dest == DestSender {
		return
	}

	if err := g.bridge.Publish(out); err != nil {
		g.log.Println("bridge publish:", err)
	}
}

// deliverLocal queues the event on every locally connected destination.
// Reports whether at least one client received it.
func (g *Gateway) deliverLocal(sender *Client, out Outbound) bool {
	switch out.Dest {
	case DestSender:
		if sender == nil {
			return false
		}
		return sender.queueEvent(out.Event)
	case DestChannel:
		return g.broadcastChannel(out.GroupId, out.Event, nil)
	case DestChannelOthers:
		return g.broadcastChannel(out.GroupId, out.Event, sender)
	case DestIdentity:
		c, ok := g.presence.Lookup(out.Identity)
		if !ok {
			return false
		}
		return c.queueEvent(out.Event)
	case DestAll:
		var delivered bool
		for _, c := range g.presence.Snapshot() {
			if c.queueEvent(out.Event) {
				delivered = true
			}
		}
		return delivered
	}

	return false
}

func (g *Gateway) broadcastChannel(groupId string, ev *ServerEvent, skip *Client) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var delivered bool
	for c := range g.channels[groupId] {
		if c == skip {
			continue
		}
		if c.queueEvent(ev) {
			delivered = true
		}
	}
	return delivered
}

func (g *Gateway) subscribe(c *Client, groupId string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.channels[groupId] == nil {
		g.channels[groupId] = make(map[*Client]struct{})
		g.stats.Incr(MetricNumChannels)
	}
	g.channels[groupId][c] = struct{}{}
}

func (g *Gateway) unsubscribe(c *Client, groupId string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeFromChannel(c, groupId)
}

func (g *Gateway) dropFromAllChannels(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for groupId := range g.channels {
		g.removeFromChannel(c, groupId)
	}
}

// removeFromChannel requires g.mu to be held.
func (g *Gateway) removeFromChannel(c *Client, groupId string) {
	subs, ok := g.channels[groupId]
	if !ok {
		return
	}

	if _, ok := subs[c]; !ok {
		return
	}

	delete(subs, c)
	if len(subs) == 0 {
		delete(g.channels, groupId)
		g.stats.Decr(MetricNumChannels)
	}
}

// Shutdown stops the bridge and closes every live connection.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.log.Println("shutting down gateway")

	if g.bridge != nil {
		if err := g.bridge.Close(); err != nil {
			g.log.Println("bridge close:", err)
		}
	}

	for _, c := range g.presence.Snapshot() {
		c.stopClient()
	}

	return ctx.Err()
}
