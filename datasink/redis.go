/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package datasink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// RedisSink appends rows, CSV-encoded, to one Redis list per participant.
type RedisSink struct {
	client *backend.Client
	prefix string
	key    string
	owned  bool
}

type RedisOption func(*RedisSink)

// WithKeyPrefix replaces the default "dyadic:rows:" list key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisSink) {
		s.prefix = prefix
	}
}

// NewRedisSink connects to addr. The connection is closed with the sink.
func NewRedisSink(addr, participantID string, opts ...RedisOption) *RedisSink {
	client := backend.NewClient(&backend.Options{
		Addr: addr,
	})

	s := NewRedisSinkFromClient(client, participantID, opts...)
	s.owned = true

	return s
}

// NewRedisSinkFromClient uses an existing client, which the caller keeps
// ownership of.
func NewRedisSinkFromClient(client *backend.Client, participantID string, opts ...RedisOption) *RedisSink {
	s := &RedisSink{
		client: client,
		prefix: "dyadic:rows:",
	}

	for _, opt := range opts {
		opt(s)
	}

	s.key = s.prefix + participantID

	return s
}

func (s *RedisSink) Key() string {
	return s.key
}

// Ping checks the server is reachable.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSink) WriteRow(ctx context.Context, fields []string) error {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return err
	}
	w.Flush()

	if err := s.client.RPush(ctx, s.key, bytes.TrimRight(buf.Bytes(), "\r\n")).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", s.key, err)
	}

	return nil
}

func (s *RedisSink) Close() error {
	if !s.owned {
		return nil
	}

	return s.client.Close()
}
