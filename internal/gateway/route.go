package gateway

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/types"
)

// Destination addresses an outbound event.
type Destination int

const (
	// DestSender delivers to the originating connection only.
	DestSender Destination = iota
	// DestChannel delivers to every subscriber of GroupId, including
	// the sender.
	DestChannel
	// DestChannelOthers delivers to every subscriber of GroupId except
	// the sender.
	DestChannelOthers
	// DestIdentity delivers to the connection registered for Identity,
	// if any.
	DestIdentity
	// DestAll delivers to every connected client.
	DestAll
)

// Outbound is one addressed server event produced by the routing layer.
type Outbound struct {
	Dest     Destination  `json:"dest"`
	GroupId  string       `json:"group_id,omitempty"`
	Identity string       `json:"identity,omitempty"`
	Event    *ServerEvent `json:"event"`
}

// subChange requests a channel subscription change for the originating
// connection.
type subChange struct {
	groupId   string
	subscribe bool
}

// routeEvent maps one inbound event to subscription changes and a list
// of addressed outbound events. It holds no transport state, so the
// dispatch layer can be swapped without touching event semantics.
//
// joinGroup, leaveGroup and typing deliberately carry no membership
// check; only sendMessage re-validates against the store.
func routeEvent(ctx context.Context, db database.TaskifyRepository, sender types.User, ev *ClientEvent) ([]subChange, []Outbound) {
	switch {
	case ev.Join != nil:
		return []subChange{{groupId: ev.Join.GroupId, subscribe: true}}, nil
	case ev.Leave != nil:
		return []subChange{{groupId: ev.Leave.GroupId, subscribe: false}}, nil
	case ev.Typing != nil:
		return nil, []Outbound{{
			Dest:    DestChannelOthers,
			GroupId: ev.Typing.GroupId,
			Event:   UserTypingEvent(ev.Typing.GroupId, sender.Email, ev.Typing.IsTyping),
		}}
	case ev.Send != nil:
		return nil, routeSendMessage(ctx, db, sender, ev.Send)
	}

	return nil, []Outbound{{Dest: DestSender, Event: ErrEvent("invalid message format")}}
}

// routeSendMessage re-checks active membership on every send, appends
// the message and fans it out to the group channel. Failures produce a
// private error event only: nothing is persisted and nothing is
// broadcast.
func routeSendMessage(ctx context.Context, db database.TaskifyRepository, sender types.User, send *SendMessage) []Outbound {
	group, err := db.GetGroupById(ctx, send.GroupId)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []Outbound{{Dest: DestSender, Event: ErrEvent("group not found")}}
		}
		return []Outbound{{Dest: DestSender, Event: ErrEvent("error sending message")}}
	}

	if _, ok := group.ToApi().ActiveMember(sender.Email); !ok {
		return []Outbound{{Dest: DestSender, Event: ErrEvent("not a member of this group")}}
	}

	msg, err := db.CreateMessage(ctx, database.CreateMessageParams{
		GroupId: send.GroupId,
		Sender:  sender.Email,
		Content: send.Content,
	})
	if err != nil {
		return []Outbound{{Dest: DestSender, Event: ErrEvent("error sending message")}}
	}

	return []Outbound{{
		Dest:    DestChannel,
		GroupId: send.GroupId,
		Event:   NewMessageEvent(send.GroupId, msg.ToApi()),
	}}
}
