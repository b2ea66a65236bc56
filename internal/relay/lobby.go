package relay

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/katro-game/katro/internal/protocol"
)

const statusAvailable = "available"

// Lobby is the presence table: one record per connection that said
// hello, keyed both ways for O(1) invite routing. Invites themselves
// are never stored; they resolve immediately into a room or a decline.
type Lobby struct {
	mu     sync.Mutex
	logger *log.Logger
	rooms  *Rooms
	users  map[*Conn]*protocol.LobbyUser
	byID   map[string]*Conn
}

func NewLobby(rooms *Rooms, logger *log.Logger) *Lobby {
	return &Lobby{
		logger: logger.WithPrefix("lobby"),
		rooms:  rooms,
		users:  make(map[*Conn]*protocol.LobbyUser),
		byID:   make(map[string]*Conn),
	}
}

// Hello announces c in the lobby. The id stays stable if the same
// connection says hello again; the sender gets a snapshot of everyone
// else, everyone else gets a delta.
func (l *Lobby) Hello(c *Conn, name, avatar string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	name = trimName(name, "Player")

	user, known := l.users[c]
	if known {
		user.Name = name
		user.Avatar = avatar
	} else {
		user = &protocol.LobbyUser{
			ID:     uuid.NewString(),
			Name:   name,
			Status: statusAvailable,
			Avatar: avatar,
		}
		l.users[c] = user
		l.byID[user.ID] = c
	}

	others := make([]protocol.LobbyUser, 0, len(l.users)-1)
	for conn, u := range l.users {
		if conn != c {
			others = append(others, *u)
		}
	}
	c.sendTyped(protocol.TypePresenceSnapshot, protocol.PresenceSnapshotData{Users: others})

	delta := protocol.PresenceDeltaData{}
	if known {
		delta.Updated = []protocol.LobbyUser{*user}
	} else {
		delta.Added = []protocol.LobbyUser{*user}
	}
	l.broadcastLocked(delta, c)

	l.logger.Info("lobby hello", "id", user.ID, "name", user.Name, "users", len(l.users))
}

// Goodbye removes c's record; everyone else learns via a delta.
func (l *Lobby) Goodbye(c *Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(c)
}

// Drop is disconnect cleanup; same effect as a goodbye.
func (l *Lobby) Drop(c *Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(c)
}

// Invite forwards an invitation to the target user, silently dropped if
// the target already left.
func (l *Lobby) Invite(from *Conn, toID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fromUser, ok := l.users[from]
	if !ok {
		return
	}
	target, ok := l.byID[toID]
	if !ok {
		l.logger.Debug("invite target gone", "to", toID)
		return
	}

	target.sendTyped(protocol.TypeInviteIncoming, protocol.InviteIncomingData{
		From:     fromUser.ID,
		FromName: fromUser.Name,
		Avatar:   fromUser.Avatar,
	})
}

// Reply resolves an invitation. A decline only notifies the inviter; an
// acceptance allocates a room with the inviter in seat A and tells both
// parties with match_start.
func (l *Lobby) Reply(from *Conn, toID string, accepted bool) {
	l.mu.Lock()

	replier, ok := l.users[from]
	if !ok {
		l.mu.Unlock()
		return
	}
	inviter, ok := l.byID[toID]
	if !ok {
		// Inviter vanished between invite and reply; nothing to do.
		l.mu.Unlock()
		return
	}
	inviterUser := l.users[inviter]

	if !accepted {
		inviter.sendTyped(protocol.TypeInviteDeclined, protocol.InviteDeclinedData{
			By:     replier.ID,
			ByName: replier.Name,
		})
		l.mu.Unlock()
		return
	}

	inviterName, replierName := inviterUser.Name, replier.Name
	l.mu.Unlock()

	// Room allocation takes the room lock; never while holding ours.
	l.rooms.CreatePaired(inviter, from, inviterName, replierName)
}

func (l *Lobby) removeLocked(c *Conn) {
	user, ok := l.users[c]
	if !ok {
		return
	}
	delete(l.users, c)
	delete(l.byID, user.ID)
	l.broadcastLocked(protocol.PresenceDeltaData{Removed: []protocol.LobbyUser{*user}}, c)
	l.logger.Info("lobby left", "id", user.ID, "users", len(l.users))
}

// broadcastLocked sends a presence delta to every lobby user except skip.
func (l *Lobby) broadcastLocked(delta protocol.PresenceDeltaData, skip *Conn) {
	for conn := range l.users {
		if conn != skip {
			conn.sendTyped(protocol.TypePresenceDelta, delta)
		}
	}
}
