/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package transport connects a participant to the coordinator over a
// websocket. Instructions arrive on a channel; outbound messages are queued
// and written by a dedicated goroutine.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Seednode/dyadic/protocol"
	"github.com/gorilla/websocket"
)

var (
	ErrClosed     = errors.New("coordinator connection closed")
	ErrBufferFull = errors.New("outbound buffer full")
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

// Conn is a live connection to the coordinator.
type Conn struct {
	ws *websocket.Conn

	send    chan protocol.Outbound
	inbound chan protocol.Instruction

	done      chan struct{}
	closeOnce sync.Once
	flushed   chan struct{}

	mu  sync.Mutex
	err error

	logf func(format string, args ...any)
}

type Option func(*Conn)

func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *Conn) {
		c.logf = logf
	}
}

// Dial opens the websocket and starts the read and write pumps.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: writeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := newConn(ws, opts...)

	go c.writePump()
	go c.readPump()

	return c, nil
}

func newConn(ws *websocket.Conn, opts ...Option) *Conn {
	c := &Conn{
		ws:      ws,
		send:    make(chan protocol.Outbound, sendBuffer),
		inbound: make(chan protocol.Instruction),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		logf:    func(string, ...any) {},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Instructions yields decoded instructions in arrival order. It is closed
// when the connection ends; Err then reports why.
func (c *Conn) Instructions() <-chan protocol.Instruction {
	return c.inbound
}

// Send queues a message without waiting for it to be written.
func (c *Conn) Send(msg protocol.Outbound) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrBufferFull
	}
}

// Close asks the write pump to flush queued messages, say goodbye and close
// the socket. It does not wait; Flushed reports when that is done. It is
// safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	return nil
}

// Flushed is closed once the write pump has exited and the socket is
// closed.
func (c *Conn) Flushed() <-chan struct{} {
	return c.flushed
}

// Err returns the reason the connection ended, or nil if it was closed
// locally or is still open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

func (c *Conn) fail(err error) {
	select {
	case <-c.done:
		return
	default:
	}

	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) readPump() {
	defer close(c.inbound)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.fail(ErrClosed)
			} else {
				c.fail(fmt.Errorf("%w: %v", ErrClosed, err))
			}

			return
		}

		ins, err := protocol.Decode(data)
		if err != nil {
			c.logf("TRANSPORT: Rejecting instruction %q: %v", data, err)
			c.fail(err)

			return
		}

		select {
		case c.inbound <- ins:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writePump() {
	defer close(c.flushed)
	defer c.ws.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				c.fail(fmt.Errorf("%w: %v", ErrClosed, err))

				return
			}
		case <-c.done:
			c.drain()

			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))

			return
		}
	}
}

func (c *Conn) drain() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(msg protocol.Outbound) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))

	if err := c.ws.WriteJSON(msg); err != nil {
		return err
	}

	c.logf("TRANSPORT: Sent %s", msg.Type())

	return nil
}
