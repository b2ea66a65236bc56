package client

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/katro-game/katro/internal/protocol"
)

// LobbyEvents are the presentation callbacks for lobby traffic. Nil
// members are skipped.
type LobbyEvents struct {
	Snapshot   func(protocol.PresenceSnapshotData)
	Delta      func(protocol.PresenceDeltaData)
	Invited    func(protocol.InviteIncomingData)
	Declined   func(protocol.InviteDeclinedData)
	MatchStart func(protocol.MatchStartData)
}

// Lobby is the client side of the presence lobby: announce, invite,
// reply, and receive the server's snapshot and deltas.
type Lobby struct {
	client *Client
	logger *log.Logger
	events LobbyEvents
}

// NewLobby registers lobby handlers on the client; call before Connect.
func NewLobby(c *Client, events LobbyEvents, logger *log.Logger) *Lobby {
	l := &Lobby{
		client: c,
		logger: logger.WithPrefix("lobby"),
		events: events,
	}

	c.On(protocol.TypePresenceSnapshot, func(msg *protocol.Message) {
		var data protocol.PresenceSnapshotData
		if !l.decode(msg, &data) {
			return
		}
		if l.events.Snapshot != nil {
			l.events.Snapshot(data)
		}
	})
	c.On(protocol.TypePresenceDelta, func(msg *protocol.Message) {
		var data protocol.PresenceDeltaData
		if !l.decode(msg, &data) {
			return
		}
		if l.events.Delta != nil {
			l.events.Delta(data)
		}
	})
	c.On(protocol.TypeInviteIncoming, func(msg *protocol.Message) {
		var data protocol.InviteIncomingData
		if !l.decode(msg, &data) {
			return
		}
		if l.events.Invited != nil {
			l.events.Invited(data)
		}
	})
	c.On(protocol.TypeInviteDeclined, func(msg *protocol.Message) {
		var data protocol.InviteDeclinedData
		if !l.decode(msg, &data) {
			return
		}
		if l.events.Declined != nil {
			l.events.Declined(data)
		}
	})
	c.On(protocol.TypeMatchStart, func(msg *protocol.Message) {
		var data protocol.MatchStartData
		if !l.decode(msg, &data) {
			return
		}
		if l.events.MatchStart != nil {
			l.events.MatchStart(data)
		}
	})

	return l
}

func (l *Lobby) decode(msg *protocol.Message, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		l.logger.Warn("discarding malformed lobby frame", "type", msg.Type, "error", err)
		return false
	}
	return true
}

// Hello announces this device in the lobby.
func (l *Lobby) Hello(name, avatar string) error {
	return l.client.Send(protocol.TypeLobbyHello, protocol.LobbyHelloData{Name: name, Avatar: avatar})
}

// Goodbye withdraws this device from the lobby.
func (l *Lobby) Goodbye() error {
	return l.client.Send(protocol.TypeLobbyBye, nil)
}

// Invite sends an invitation to the lobby user with the given id.
func (l *Lobby) Invite(toID string) error {
	return l.client.Send(protocol.TypeInvite, protocol.InviteData{To: toID})
}

// Reply answers an invitation from the user with the given id.
func (l *Lobby) Reply(toID string, accepted bool) error {
	return l.client.Send(protocol.TypeInviteReply, protocol.InviteReplyData{To: toID, Accepted: accepted})
}
