package relay

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/katro-game/katro/internal/protocol"
)

const maxNameLen = 20

// Room pairs two connections. Seats are cleared on disconnect; the room
// dies once both seats are empty.
type Room struct {
	Code  string
	A, B  *Conn
	Names protocol.RoomNames
}

func (r *Room) full() bool  { return r.A != nil && r.B != nil }
func (r *Room) empty() bool { return r.A == nil && r.B == nil }

func (r *Room) seatOf(c *Conn) (protocol.Seat, bool) {
	switch c {
	case r.A:
		return protocol.SeatA, true
	case r.B:
		return protocol.SeatB, true
	}
	return "", false
}

// Rooms is the room table. One mutex guards both indexes so that seat
// occupancy checks and the resulting broadcasts are atomic relative to
// every other room mutation: a start frame is always queued on both
// seats before any later move frame can be.
type Rooms struct {
	mu     sync.Mutex
	logger *log.Logger
	byCode map[string]*Room
	byConn map[*Conn]string
}

func NewRooms(logger *log.Logger) *Rooms {
	return &Rooms{
		logger: logger.WithPrefix("rooms"),
		byCode: make(map[string]*Room),
		byConn: make(map[*Conn]string),
	}
}

// newCode returns a fresh 4-hex-character room code, unique under the
// caller-held lock.
func (rs *Rooms) newCode() string {
	for {
		var b [2]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic("failed to read random bytes: " + err.Error())
		}
		code := strings.ToUpper(fmt.Sprintf("%02x%02x", b[0], b[1]))
		if _, taken := rs.byCode[code]; !taken {
			return code
		}
	}
}

func trimName(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}

// Create opens a room with the caller in seat A and replies
// room_created.
func (rs *Rooms) Create(c *Conn, name string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.detachLocked(c)

	room := &Room{Code: rs.newCode(), A: c}
	room.Names.A = trimName(name, "J1")
	rs.byCode[room.Code] = room
	rs.byConn[c] = room.Code

	rs.logger.Info("room created", "code", room.Code)
	c.sendTyped(protocol.TypeRoomCreated, protocol.RoomCreatedData{Code: room.Code, Seat: protocol.SeatA})
}

// Join seats the caller in an existing room. An unknown or full code
// gets an explicit error reply and mutates nothing. When the second
// seat fills, the start broadcast happens under the same lock as the
// occupancy check, so both seats observe start before any move.
func (rs *Rooms) Join(c *Conn, code, name string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	code = strings.ToUpper(code)
	room, ok := rs.byCode[code]
	if !ok || room.full() {
		c.sendError(protocol.ReasonRoomUnavailable)
		return
	}

	rs.detachLocked(c)

	var seat protocol.Seat
	if room.A == nil {
		room.A = c
		room.Names.A = trimName(name, "J1")
		seat = protocol.SeatA
	} else {
		room.B = c
		room.Names.B = trimName(name, "J2")
		seat = protocol.SeatB
	}
	rs.byConn[c] = code

	rs.logger.Info("room joined", "code", code, "seat", string(seat))
	c.sendTyped(protocol.TypeRoomJoined, protocol.RoomJoinedData{Code: code, Seat: seat})
	rs.broadcastTypedLocked(room, protocol.TypePeerJoined, nil)

	if room.full() {
		rs.broadcastTypedLocked(room, protocol.TypeStart, protocol.StartData{Names: room.Names})
	}
}

// CreatePaired seats two already-known connections in a fresh room, for
// lobby invites: the inviter takes seat A. Both parties get match_start.
func (rs *Rooms) CreatePaired(inviter, replier *Conn, inviterName, replierName string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.detachLocked(inviter)
	rs.detachLocked(replier)

	room := &Room{Code: rs.newCode(), A: inviter, B: replier}
	room.Names.A = trimName(inviterName, "J1")
	room.Names.B = trimName(replierName, "J2")
	rs.byCode[room.Code] = room
	rs.byConn[inviter] = room.Code
	rs.byConn[replier] = room.Code

	rs.logger.Info("room created from invite", "code", room.Code)
	inviter.sendTyped(protocol.TypeMatchStart, protocol.MatchStartData{Code: room.Code, Seat: protocol.SeatA, Names: room.Names})
	replier.sendTyped(protocol.TypeMatchStart, protocol.MatchStartData{Code: room.Code, Seat: protocol.SeatB, Names: room.Names})
	return room.Code
}

// Broadcast rebroadcasts a frame from c to both seats of its room,
// sender included. A connection with no room mapping is ignored.
func (rs *Rooms) Broadcast(c *Conn, msg *protocol.Message) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	code, ok := rs.byConn[c]
	if !ok {
		return
	}
	room := rs.byCode[code]
	for _, seat := range []*Conn{room.A, room.B} {
		if seat != nil {
			seat.Send(msg)
		}
	}
}

// Drop clears c's seat after a disconnect or leave; the room is deleted
// once both seats are empty.
func (rs *Rooms) Drop(c *Conn) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.detachLocked(c)
}

func (rs *Rooms) detachLocked(c *Conn) {
	code, ok := rs.byConn[c]
	if !ok {
		return
	}
	delete(rs.byConn, c)

	room := rs.byCode[code]
	if room == nil {
		return
	}
	if room.A == c {
		room.A = nil
	}
	if room.B == c {
		room.B = nil
	}
	if room.empty() {
		delete(rs.byCode, code)
		rs.logger.Info("room deleted", "code", code)
	}
}

func (rs *Rooms) broadcastTypedLocked(room *Room, t protocol.MessageType, data any) {
	for _, seat := range []*Conn{room.A, room.B} {
		if seat != nil {
			seat.sendTyped(t, data)
		}
	}
}
