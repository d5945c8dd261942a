/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"

	"github.com/Seednode/dyadic/interaction"
	"github.com/Seednode/dyadic/protocol"
	"github.com/Seednode/dyadic/timeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	instructions    *prometheus.CounterVec
	outbound        *prometheus.CounterVec
	sendFailures    *prometheus.CounterVec
	trialsCompleted *prometheus.CounterVec
	responseTime    *prometheus.HistogramVec
	waitsForced     prometheus.Counter
	recorderErrors  prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		instructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dyadic_instructions_total",
				Help: "Instructions received from the coordinator.",
			},
			[]string{"type"},
		),
		outbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dyadic_outbound_messages_total",
				Help: "Messages queued for the coordinator.",
			},
			[]string{"type"},
		),
		sendFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dyadic_outbound_failures_total",
				Help: "Messages that could not be queued for the coordinator.",
			},
			[]string{"type"},
		),
		trialsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dyadic_trials_completed_total",
				Help: "Recorded trials completed, by trial type.",
			},
			[]string{"trial_type"},
		),
		responseTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dyadic_response_seconds",
				Help:    "Participant response time on recorded trials.",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
			},
			[]string{"trial_type"},
		),
		waitsForced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dyadic_waits_forced_total",
			Help: "Waiting screens ended by an incoming instruction.",
		}),
		recorderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dyadic_recorder_errors_total",
			Help: "Data rows that failed to reach a sink.",
		}),
	}

	m.registry.MustRegister(
		m.instructions,
		m.outbound,
		m.sendFailures,
		m.trialsCompleted,
		m.responseTime,
		m.waitsForced,
		m.recorderErrors,
	)

	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) timelineHooks() timeline.Hooks {
	return timeline.Hooks{
		OnLeafFinish: func(r *timeline.Result) {
			if !r.Trial.Data.Record {
				return
			}

			tt := r.Trial.Data.TrialType
			m.trialsCompleted.WithLabelValues(tt).Inc()

			if r.Responded() {
				m.responseTime.WithLabelValues(tt).Observe(r.RT.Seconds())
			}
		},
		OnForceEnd: func(*timeline.Trial) {
			m.waitsForced.Inc()
		},
	}
}

func (m *metrics) interactionHooks() interaction.Hooks {
	return interaction.Hooks{
		OnInstruction: func(tag protocol.Tag) {
			m.instructions.WithLabelValues(string(tag)).Inc()
		},
		OnSend: m.sent,
	}
}

func (m *metrics) sent(rt protocol.ResponseType, err error) {
	if err != nil {
		m.sendFailures.WithLabelValues(string(rt)).Inc()

		return
	}

	m.outbound.WithLabelValues(string(rt)).Inc()
}
