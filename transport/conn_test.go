/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/dyadic/protocol"
	"github.com/Seednode/dyadic/transport"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coordinator is a scripted stand-in for the pairing server.
type coordinator struct {
	srv      *httptest.Server
	script   func(ws *websocket.Conn)
	received chan map[string]any
}

func newCoordinator(t *testing.T, script func(ws *websocket.Conn)) *coordinator {
	t.Helper()

	c := &coordinator{script: script, received: make(chan map[string]any, 16)}
	upgrader := websocket.Upgrader{}

	c.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		go func() {
			for {
				var msg map[string]any
				if err := ws.ReadJSON(&msg); err != nil {
					close(c.received)
					return
				}
				c.received <- msg
			}
		}()

		c.script(ws)
	}))
	t.Cleanup(c.srv.Close)

	return c
}

func (c *coordinator) url() string {
	return "ws" + strings.TrimPrefix(c.srv.URL, "http")
}

func push(t *testing.T, ws *websocket.Conn, ins protocol.Instruction) {
	data, err := protocol.Encode(ins)
	assert.NoError(t, err)
	assert.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
}

func recv(t *testing.T, ch <-chan protocol.Instruction) (protocol.Instruction, bool) {
	t.Helper()

	select {
	case ins, ok := <-ch:
		return ins, ok
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for instruction")
		return nil, false
	}
}

func TestConn_ReceivesInstructionsInOrder(t *testing.T) {
	hold := make(chan struct{})
	coord := newCoordinator(t, func(ws *websocket.Conn) {
		push(t, ws, protocol.EnterWaitingRoom{})
		push(t, ws, protocol.PairedInstructions{})
		push(t, ws, protocol.DirectorTurn{TargetObject: "object4", PartnerID: "P2"})
		<-hold
	})
	defer close(hold)

	conn, err := transport.Dial(context.Background(), coord.url())
	require.NoError(t, err)
	defer conn.Close()

	var got []protocol.Instruction
	for range 3 {
		ins, ok := recv(t, conn.Instructions())
		require.True(t, ok)
		got = append(got, ins)
	}

	assert.Equal(t, []protocol.Instruction{
		protocol.EnterWaitingRoom{},
		protocol.PairedInstructions{},
		protocol.DirectorTurn{TargetObject: "object4", PartnerID: "P2"},
	}, got)
}

func TestConn_SendReachesCoordinator(t *testing.T) {
	hold := make(chan struct{})
	coord := newCoordinator(t, func(*websocket.Conn) { <-hold })
	defer close(hold)

	conn, err := transport.Dial(context.Background(), coord.url())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send(protocol.DirectorResponse{
		Participant: "P1", Partner: "P2", TargetObject: "object4", Label: "zopekil",
	}))

	select {
	case msg := <-coord.received:
		want := map[string]any{
			"response_type": "RESPONSE",
			"role":          "Director",
			"participant":   "P1",
			"partner":       "P2",
			"target_object": "object4",
			"response":      "zopekil",
		}
		assert.Equal(t, want, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator never received the response")
	}
}

func TestConn_UnknownInstructionEndsConnection(t *testing.T) {
	hold := make(chan struct{})
	coord := newCoordinator(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"command_type":"Juggle"}`))
		<-hold
	})
	defer close(hold)

	conn, err := transport.Dial(context.Background(), coord.url())
	require.NoError(t, err)
	defer conn.Close()

	_, ok := recv(t, conn.Instructions())
	assert.False(t, ok)
	assert.ErrorIs(t, conn.Err(), protocol.ErrUnknownInstruction)
}

func TestConn_RemoteCloseReportsErrClosed(t *testing.T) {
	coord := newCoordinator(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	conn, err := transport.Dial(context.Background(), coord.url())
	require.NoError(t, err)
	defer conn.Close()

	_, ok := recv(t, conn.Instructions())
	assert.False(t, ok)
	assert.ErrorIs(t, conn.Err(), transport.ErrClosed)
	assert.ErrorIs(t, conn.Send(protocol.FinishedFeedbackMessage{}), transport.ErrClosed)
}

func TestConn_CloseFlushesQueuedMessages(t *testing.T) {
	hold := make(chan struct{})
	coord := newCoordinator(t, func(*websocket.Conn) { <-hold })
	defer close(hold)

	conn, err := transport.Dial(context.Background(), coord.url())
	require.NoError(t, err)

	require.NoError(t, conn.Send(protocol.FinishedFeedbackMessage{}))
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Send(protocol.FinishedFeedbackMessage{}), transport.ErrClosed)
	assert.NoError(t, conn.Err())

	select {
	case msg, ok := <-coord.received:
		require.True(t, ok)
		raw, _ := json.Marshal(msg)
		assert.JSONEq(t, `{"response_type":"FINISHED_FEEDBACK"}`, string(raw))
	case <-time.After(5 * time.Second):
		t.Fatal("queued message was not flushed before close")
	}

	select {
	case <-conn.Flushed():
	case <-time.After(5 * time.Second):
		t.Fatal("write pump never exited")
	}
}

func TestConn_CloseDoesNotWaitForFlush(t *testing.T) {
	hold := make(chan struct{})
	coord := newCoordinator(t, func(*websocket.Conn) { <-hold })
	defer close(hold)

	conn, err := transport.Dial(context.Background(), coord.url())
	require.NoError(t, err)

	for range 8 {
		require.NoError(t, conn.Send(protocol.FinishedFeedbackMessage{}))
	}

	start := time.Now()
	require.NoError(t, conn.Close())
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	select {
	case <-conn.Flushed():
	case <-time.After(5 * time.Second):
		t.Fatal("write pump never exited")
	}
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := transport.Dial(ctx, "ws://127.0.0.1:1/")
	assert.Error(t, err)
}
