// Package protocol defines the wire catalogue shared by the relay
// server and the sync client: one JSON object per WebSocket frame, a
// type discriminator, and a typed payload.
package protocol

import (
	"encoding/json"
	"time"
)

// MessageType discriminates wire messages.
type MessageType string

const (
	// Client to server
	TypeCreateRoom  MessageType = "create_room"
	TypeJoinRoom    MessageType = "join_room"
	TypeMove        MessageType = "move"
	TypeLeave       MessageType = "leave"
	TypeLobbyHello  MessageType = "lobby_hello"
	TypeLobbyBye    MessageType = "lobby_goodbye"
	TypeInvite      MessageType = "invite"
	TypeInviteReply MessageType = "invite_reply"

	// Server to client
	TypeRoomCreated      MessageType = "room_created"
	TypeRoomJoined       MessageType = "room_joined"
	TypePeerJoined       MessageType = "peer_joined"
	TypeStart            MessageType = "start"
	TypeError            MessageType = "error"
	TypePresenceSnapshot MessageType = "presence_snapshot"
	TypePresenceDelta    MessageType = "presence_delta"
	TypeInviteIncoming   MessageType = "invite_incoming"
	TypeInviteDeclined   MessageType = "invite_declined"
	TypeMatchStart       MessageType = "match_start"
)

func (mt MessageType) String() string { return string(mt) }

// Message is the frame envelope. Move frames are rebroadcast by the
// relay without touching Data, so Data stays a RawMessage.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps data in an envelope stamped with the current time.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	return NewMessageAt(time.Now().UTC(), messageType, data)
}

// NewMessageAt wraps data in an envelope with an explicit timestamp;
// the relay stamps frames from its injected clock.
func NewMessageAt(ts time.Time, messageType MessageType, data any) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = bytes
	}
	return &Message{Type: messageType, Data: raw, Timestamp: ts}, nil
}
