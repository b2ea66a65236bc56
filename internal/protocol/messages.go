package protocol

// Client -> Server payloads

type CreateRoomData struct {
	Name string `json:"name,omitempty"`
}

type JoinRoomData struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// MoveData is the only payload carrying game semantics. The nonce is
// minted by the originating device and exists purely so duplicates and
// echoes can be discarded; the rules never see it.
type MoveData struct {
	Idx    int    `json:"idx"`
	Step   int    `json:"step"`
	Player int    `json:"player"`
	Nonce  string `json:"nonce"`
}

type LobbyHelloData struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type InviteData struct {
	To string `json:"to"`
}

type InviteReplyData struct {
	To       string `json:"to"`
	Accepted bool   `json:"accepted"`
}

// Server -> Client payloads

type RoomCreatedData struct {
	Code string `json:"code"`
	Seat Seat   `json:"role"`
}

type RoomJoinedData struct {
	Code string `json:"code"`
	Seat Seat   `json:"role"`
}

// RoomNames carries the display names of both seats.
type RoomNames struct {
	A string `json:"a"`
	B string `json:"b"`
}

type StartData struct {
	Names RoomNames `json:"names"`
}

type ErrorData struct {
	Reason string `json:"reason"`
}

// LobbyUser is one presence record. The id is assigned by the server
// and stable for the lifetime of the connection.
type LobbyUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Avatar string `json:"avatar,omitempty"`
}

type PresenceSnapshotData struct {
	Users []LobbyUser `json:"users"`
}

type PresenceDeltaData struct {
	Added   []LobbyUser `json:"added,omitempty"`
	Removed []LobbyUser `json:"removed,omitempty"`
	Updated []LobbyUser `json:"updated,omitempty"`
}

type InviteIncomingData struct {
	From     string `json:"from"`
	FromName string `json:"fromName"`
	Avatar   string `json:"avatar,omitempty"`
}

type InviteDeclinedData struct {
	By     string `json:"by"`
	ByName string `json:"byName"`
}

type MatchStartData struct {
	Code  string    `json:"code"`
	Seat  Seat      `json:"role"`
	Names RoomNames `json:"names"`
}

// Error reason codes sent by the relay.
const (
	ReasonRoomUnavailable = "room_unavailable"
	ReasonBadPayload      = "bad_payload"
	ReasonUnknownType     = "unknown_message_type"
)
