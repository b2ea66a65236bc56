package relay

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katro-game/katro/internal/protocol"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func startTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(testLogger(), opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dialTestServer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendMsg(t *testing.T, ws *websocket.Conn, msgType protocol.MessageType, data any) {
	t.Helper()
	msg, err := protocol.NewMessage(msgType, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(msg))
}

func readMsg(t *testing.T, ws *websocket.Conn) *protocol.Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg protocol.Message
	require.NoError(t, ws.ReadJSON(&msg))
	return &msg
}

func expectMsg(t *testing.T, ws *websocket.Conn, msgType protocol.MessageType) *protocol.Message {
	t.Helper()
	msg := readMsg(t, ws)
	require.Equal(t, msgType, msg.Type, "unexpected frame %q", msg.Type)
	return msg
}

func expectNothing(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	var msg protocol.Message
	err := ws.ReadJSON(&msg)
	require.Error(t, err, "expected no frame, got %q", msg.Type)
}

func decode[T any](t *testing.T, msg *protocol.Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Data, &v))
	return v
}

func TestCreateJoinStartAndMoveEcho(t *testing.T) {
	srv := startTestServer(t)
	host := dialTestServer(t, srv)
	guest := dialTestServer(t, srv)

	sendMsg(t, host, protocol.TypeCreateRoom, protocol.CreateRoomData{Name: "Aina"})
	created := decode[protocol.RoomCreatedData](t, expectMsg(t, host, protocol.TypeRoomCreated))
	assert.Len(t, created.Code, 4)
	assert.Equal(t, protocol.SeatA, created.Seat)

	sendMsg(t, guest, protocol.TypeJoinRoom, protocol.JoinRoomData{Code: created.Code, Name: "Bako"})
	joined := decode[protocol.RoomJoinedData](t, expectMsg(t, guest, protocol.TypeRoomJoined))
	assert.Equal(t, protocol.SeatB, joined.Seat)

	// Both seats observe start, and only after the second join.
	expectMsg(t, guest, protocol.TypePeerJoined)
	guestStart := decode[protocol.StartData](t, expectMsg(t, guest, protocol.TypeStart))
	expectMsg(t, host, protocol.TypePeerJoined)
	hostStart := decode[protocol.StartData](t, expectMsg(t, host, protocol.TypeStart))
	assert.Equal(t, protocol.RoomNames{A: "Aina", B: "Bako"}, hostStart.Names)
	assert.Equal(t, hostStart.Names, guestStart.Names)

	// A move rebroadcasts verbatim to both seats, sender included.
	sendMsg(t, host, protocol.TypeMove, protocol.MoveData{Idx: 16, Step: 1, Player: 1, Nonce: "n-abc"})
	for _, ws := range []*websocket.Conn{host, guest} {
		mv := decode[protocol.MoveData](t, expectMsg(t, ws, protocol.TypeMove))
		assert.Equal(t, protocol.MoveData{Idx: 16, Step: 1, Player: 1, Nonce: "n-abc"}, mv)
	}
}

func TestStartNotSentBeforeSecondJoin(t *testing.T) {
	srv := startTestServer(t)
	host := dialTestServer(t, srv)

	sendMsg(t, host, protocol.TypeCreateRoom, nil)
	expectMsg(t, host, protocol.TypeRoomCreated)
	expectNothing(t, host)
}

func TestJoinUnknownRoom(t *testing.T) {
	srv := startTestServer(t)
	ws := dialTestServer(t, srv)

	sendMsg(t, ws, protocol.TypeJoinRoom, protocol.JoinRoomData{Code: "ZZZZ"})
	errData := decode[protocol.ErrorData](t, expectMsg(t, ws, protocol.TypeError))
	assert.Equal(t, protocol.ReasonRoomUnavailable, errData.Reason)
}

func TestJoinFullRoom(t *testing.T) {
	srv := startTestServer(t)
	host := dialTestServer(t, srv)
	guest := dialTestServer(t, srv)
	third := dialTestServer(t, srv)

	sendMsg(t, host, protocol.TypeCreateRoom, nil)
	created := decode[protocol.RoomCreatedData](t, expectMsg(t, host, protocol.TypeRoomCreated))
	sendMsg(t, guest, protocol.TypeJoinRoom, protocol.JoinRoomData{Code: created.Code})
	expectMsg(t, guest, protocol.TypeRoomJoined)

	sendMsg(t, third, protocol.TypeJoinRoom, protocol.JoinRoomData{Code: created.Code})
	errData := decode[protocol.ErrorData](t, expectMsg(t, third, protocol.TypeError))
	assert.Equal(t, protocol.ReasonRoomUnavailable, errData.Reason)
}

func TestRoomDeletedWhenBothSeatsEmpty(t *testing.T) {
	srv := startTestServer(t)
	host := dialTestServer(t, srv)

	sendMsg(t, host, protocol.TypeCreateRoom, nil)
	created := decode[protocol.RoomCreatedData](t, expectMsg(t, host, protocol.TypeRoomCreated))
	require.NoError(t, host.Close())

	// The disconnect is processed asynchronously. A probe that lands in
	// the stale room backs out again, so the room must eventually empty
	// out, be deleted, and reject the code.
	require.Eventually(t, func() bool {
		probe := dialTestServer(t, srv)
		sendMsg(t, probe, protocol.TypeJoinRoom, protocol.JoinRoomData{Code: created.Code})
		msg := readMsg(t, probe)
		if msg.Type == protocol.TypeError {
			return true
		}
		sendMsg(t, probe, protocol.TypeLeave, nil)
		return false
	}, 2*time.Second, 50*time.Millisecond)
}

func TestLobbySnapshotExcludesSelf(t *testing.T) {
	srv := startTestServer(t)
	first := dialTestServer(t, srv)
	second := dialTestServer(t, srv)

	sendMsg(t, first, protocol.TypeLobbyHello, protocol.LobbyHelloData{Name: "Aina", Avatar: "zebu"})
	snap := decode[protocol.PresenceSnapshotData](t, expectMsg(t, first, protocol.TypePresenceSnapshot))
	assert.Empty(t, snap.Users)

	sendMsg(t, second, protocol.TypeLobbyHello, protocol.LobbyHelloData{Name: "Bako"})
	snap = decode[protocol.PresenceSnapshotData](t, expectMsg(t, second, protocol.TypePresenceSnapshot))
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "Aina", snap.Users[0].Name)
	assert.Equal(t, "zebu", snap.Users[0].Avatar)

	delta := decode[protocol.PresenceDeltaData](t, expectMsg(t, first, protocol.TypePresenceDelta))
	require.Len(t, delta.Added, 1)
	assert.Equal(t, "Bako", delta.Added[0].Name)
}

func TestLobbyGoodbyeBroadcastsRemoval(t *testing.T) {
	srv := startTestServer(t)
	first := dialTestServer(t, srv)
	second := dialTestServer(t, srv)

	sendMsg(t, first, protocol.TypeLobbyHello, protocol.LobbyHelloData{Name: "Aina"})
	expectMsg(t, first, protocol.TypePresenceSnapshot)
	sendMsg(t, second, protocol.TypeLobbyHello, protocol.LobbyHelloData{Name: "Bako"})
	expectMsg(t, second, protocol.TypePresenceSnapshot)
	expectMsg(t, first, protocol.TypePresenceDelta)

	sendMsg(t, second, protocol.TypeLobbyBye, nil)
	delta := decode[protocol.PresenceDeltaData](t, expectMsg(t, first, protocol.TypePresenceDelta))
	require.Len(t, delta.Removed, 1)
	assert.Equal(t, "Bako", delta.Removed[0].Name)
}

func lobbyPair(t *testing.T, srv *httptest.Server) (inviter, target *websocket.Conn, inviterID, targetID string) {
	t.Helper()
	inviter = dialTestServer(t, srv)
	target = dialTestServer(t, srv)

	sendMsg(t, inviter, protocol.TypeLobbyHello, protocol.LobbyHelloData{Name: "Aina"})
	expectMsg(t, inviter, protocol.TypePresenceSnapshot)

	sendMsg(t, target, protocol.TypeLobbyHello, protocol.LobbyHelloData{Name: "Bako"})
	expectMsg(t, target, protocol.TypePresenceSnapshot)

	delta := decode[protocol.PresenceDeltaData](t, expectMsg(t, inviter, protocol.TypePresenceDelta))
	require.Len(t, delta.Added, 1)
	targetID = delta.Added[0].ID

	sendMsg(t, inviter, protocol.TypeInvite, protocol.InviteData{To: targetID})
	incoming := decode[protocol.InviteIncomingData](t, expectMsg(t, target, protocol.TypeInviteIncoming))
	assert.Equal(t, "Aina", incoming.FromName)
	inviterID = incoming.From
	return inviter, target, inviterID, targetID
}

func TestInviteDeclineNotifiesOnlyInviter(t *testing.T) {
	srv := startTestServer(t)
	inviter, target, inviterID, _ := lobbyPair(t, srv)

	sendMsg(t, target, protocol.TypeInviteReply, protocol.InviteReplyData{To: inviterID, Accepted: false})
	declined := decode[protocol.InviteDeclinedData](t, expectMsg(t, inviter, protocol.TypeInviteDeclined))
	assert.Equal(t, "Bako", declined.ByName)

	// No room is allocated on a decline.
	expectNothing(t, inviter)
	expectNothing(t, target)
}

func TestInviteAcceptSeatsInviterAsA(t *testing.T) {
	srv := startTestServer(t)
	inviter, target, inviterID, _ := lobbyPair(t, srv)

	sendMsg(t, target, protocol.TypeInviteReply, protocol.InviteReplyData{To: inviterID, Accepted: true})

	inviterStart := decode[protocol.MatchStartData](t, expectMsg(t, inviter, protocol.TypeMatchStart))
	targetStart := decode[protocol.MatchStartData](t, expectMsg(t, target, protocol.TypeMatchStart))

	assert.Equal(t, protocol.SeatA, inviterStart.Seat)
	assert.Equal(t, protocol.SeatB, targetStart.Seat)
	assert.Equal(t, inviterStart.Code, targetStart.Code)
	assert.Equal(t, protocol.RoomNames{A: "Aina", B: "Bako"}, inviterStart.Names)

	// The paired room works like any other: moves echo to both seats.
	sendMsg(t, target, protocol.TypeMove, protocol.MoveData{Idx: 8, Step: 1, Player: 2, Nonce: "n-1"})
	expectMsg(t, inviter, protocol.TypeMove)
	expectMsg(t, target, protocol.TypeMove)
}

func TestInviteToDepartedUserSilentlyDropped(t *testing.T) {
	srv := startTestServer(t)
	inviter := dialTestServer(t, srv)
	other := dialTestServer(t, srv)

	sendMsg(t, inviter, protocol.TypeLobbyHello, protocol.LobbyHelloData{Name: "Aina"})
	expectMsg(t, inviter, protocol.TypePresenceSnapshot)
	sendMsg(t, other, protocol.TypeLobbyHello, protocol.LobbyHelloData{Name: "Bako"})
	expectMsg(t, other, protocol.TypePresenceSnapshot)
	delta := decode[protocol.PresenceDeltaData](t, expectMsg(t, inviter, protocol.TypePresenceDelta))
	otherID := delta.Added[0].ID

	sendMsg(t, other, protocol.TypeLobbyBye, nil)
	expectMsg(t, inviter, protocol.TypePresenceDelta)

	sendMsg(t, inviter, protocol.TypeInvite, protocol.InviteData{To: otherID})
	expectNothing(t, inviter)
}

func TestMalformedPayloadGetsErrorReply(t *testing.T) {
	srv := startTestServer(t)
	ws := dialTestServer(t, srv)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "join_room", "data": 42}))
	errData := decode[protocol.ErrorData](t, expectMsg(t, ws, protocol.TypeError))
	assert.Equal(t, protocol.ReasonBadPayload, errData.Reason)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "warp"}))
	errData = decode[protocol.ErrorData](t, expectMsg(t, ws, protocol.TypeError))
	assert.Equal(t, protocol.ReasonUnknownType, errData.Reason)
}

func TestFramesStampedFromInjectedClock(t *testing.T) {
	mock := quartz.NewMock(t)
	mock.Set(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	srv := startTestServer(t, WithClock(mock))
	ws := dialTestServer(t, srv)

	sendMsg(t, ws, protocol.TypeCreateRoom, nil)
	msg := expectMsg(t, ws, protocol.TypeRoomCreated)
	assert.Equal(t, time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC), msg.Timestamp)
}
