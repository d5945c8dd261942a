/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/Seednode/dyadic/console"
	"github.com/Seednode/dyadic/datasink"
	"github.com/Seednode/dyadic/experiment"
	"github.com/Seednode/dyadic/interaction"
	"github.com/Seednode/dyadic/protocol"
	"github.com/Seednode/dyadic/timeline"
	"github.com/Seednode/dyadic/transport"
)

// Status is the snapshot served on /status. It is rebuilt by the session
// goroutine after every event.
type Status struct {
	ParticipantID   string `json:"participant_id"`
	PartnerID       string `json:"partner_id,omitempty"`
	Role            string `json:"role"`
	Active          string `json:"active,omitempty"`
	Waiting         string `json:"waiting,omitempty"`
	Connected       bool   `json:"connected"`
	Suspended       bool   `json:"suspended"`
	Ending          bool   `json:"ending"`
	Halted          bool   `json:"halted"`
	TrialsCompleted int    `json:"trials_completed"`
}

const closeWait = 5 * time.Second

type dialResult struct {
	conn *transport.Conn
	err  error
}

type session struct {
	cfg        *Config
	engine     *timeline.Engine
	presenter  timeline.Presenter
	dispatcher *interaction.Dispatcher
	metrics    *metrics

	status atomic.Pointer[Status]

	conn   *transport.Conn
	dialed chan dialResult
}

func newSession(cfg *Config, p timeline.Presenter, rec timeline.Recorder, m *metrics) *session {
	s := &session{
		cfg:       cfg,
		presenter: p,
		metrics:   m,
		dialed:    make(chan dialResult, 1),
	}

	s.engine = timeline.NewEngine(p,
		timeline.WithRecorder(rec, cfg.participantID),
		timeline.WithHooks(m.timelineHooks()),
		timeline.WithLogf(logger(cfg)),
	)

	s.dispatcher = interaction.NewDispatcher(s.engine, interaction.NewSession(cfg.participantID), interaction.Config{
		FeedbackDuration: cfg.feedbackDuration,
		Shuffle:          p.Shuffle,
		Hooks:            m.interactionHooks(),
		Logf:             logger(cfg),
	})

	s.publish()

	return s
}

// connect dials the coordinator in the background; the result is picked up
// by run.
func (s *session) connect(ctx context.Context) {
	logf(s.cfg, "SESSION: Connecting to %s", s.cfg.coordinator)

	go func() {
		dialCtx, cancel := context.WithTimeout(ctx, s.cfg.dialTimeout)
		defer cancel()

		conn, err := transport.Dial(dialCtx, s.cfg.coordinator, transport.WithLogf(logger(s.cfg)))

		s.dialed <- dialResult{conn: conn, err: err}
	}()
}

// run owns the engine until it halts. Every engine call happens here.
func (s *session) run(ctx context.Context) error {
	var inbound <-chan protocol.Instruction

	defer func() {
		if s.conn == nil {
			return
		}

		_ = s.conn.Close()

		select {
		case <-s.conn.Flushed():
		case <-time.After(closeWait):
			logf(s.cfg, "SESSION: Gave up flushing coordinator connection after %s", closeWait)
		}
	}()

	for {
		s.publish()

		select {
		case <-ctx.Done():
			logf(s.cfg, "SESSION: Interrupted")

			s.engine.Halt()
			s.publish()

			return nil

		case <-s.engine.Done():
			logf(s.cfg, "SESSION: Finished after %d steps", s.engine.Completed())

			return nil

		case resp := <-s.presenter.Responses():
			s.engine.Complete(resp)

		case r := <-s.dialed:
			if r.err != nil {
				logError(r.err)
				s.dispatcher.TransportLost(r.err)

				continue
			}

			s.conn = r.conn
			inbound = r.conn.Instructions()
			s.dispatcher.Attach(r.conn)

			logf(s.cfg, "SESSION: Connected as %s", s.cfg.participantID)

			msg := protocol.ClientInfoMessage{Participant: s.cfg.participantID}
			s.metrics.sent(msg.Type(), r.conn.Send(msg))

		case ins, ok := <-inbound:
			if !ok {
				inbound = nil

				err := s.conn.Err()
				if errors.Is(err, protocol.ErrUnknownInstruction) || errors.Is(err, protocol.ErrMalformedInstruction) {
					s.engine.Halt()

					return err
				}

				s.dispatcher.TransportLost(err)

				continue
			}

			if err := s.dispatcher.Dispatch(ins); err != nil {
				s.engine.Halt()

				return fmt.Errorf("dispatch %s: %w", ins.Tag(), err)
			}
		}
	}
}

func (s *session) publish() {
	sess := s.dispatcher.Session()

	st := &Status{
		ParticipantID:   sess.ParticipantID,
		PartnerID:       sess.PartnerID,
		Role:            string(sess.Role),
		Connected:       s.conn != nil,
		Suspended:       s.engine.Suspended(),
		Ending:          s.dispatcher.Ending(),
		Halted:          s.engine.Halted(),
		TrialsCompleted: s.engine.Completed(),
	}

	if a := s.engine.Active(); a != nil {
		st.Active = a.Leaf.ID
		if a.Wait != timeline.NotWaiting {
			st.Waiting = a.Wait.String()
		}
	}

	s.status.Store(st)
}

func (s *session) Status() Status {
	return *s.status.Load()
}

func openRecorder(ctx context.Context, cfg *Config, m *metrics) (*datasink.Recorder, error) {
	file, err := datasink.OpenFile(cfg.dataDir, cfg.participantID)
	if err != nil {
		return nil, err
	}

	logf(cfg, "DATA: Writing rows to %s", file.Path())

	sinks := []datasink.Sink{file}

	if cfg.redisAddr != "" {
		rs := datasink.NewRedisSink(cfg.redisAddr, cfg.participantID, datasink.WithKeyPrefix(cfg.redisKeyPrefix))

		pingCtx, cancel := context.WithTimeout(ctx, cfg.dialTimeout)
		defer cancel()

		if err := rs.Ping(pingCtx); err != nil {
			_ = file.Close()
			_ = rs.Close()

			return nil, fmt.Errorf("redis %s: %w", cfg.redisAddr, err)
		}

		logf(cfg, "DATA: Appending rows to redis key %s", rs.Key())

		sinks = append(sinks, rs)
	}

	return datasink.NewRecorder(func(err error) {
		m.recorderErrors.Inc()
		logf(cfg, "DATA: %v", err)
	}, sinks...), nil
}

// RunSession runs one participant from consent to the final screen.
func RunSession(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: dyadic v%s", releaseVersion)

	m := newMetrics()

	rec, err := openRecorder(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logError(err)
		}
	}()

	s := newSession(cfg, console.New(in, out), rec, m)

	if cfg.port > 0 {
		stop, err := serveStatus(cfg, s, m)
		if err != nil {
			return err
		}
		defer stop()
	}

	s.engine.Append(experiment.Preamble(experiment.Config{
		Recorder:        rec,
		SkipObservation: cfg.skipObservation,
		Connect:         func() { s.connect(ctx) },
	})...)

	return s.run(ctx)
}
