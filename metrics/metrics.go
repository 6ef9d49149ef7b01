/*
 * browserkit - a DevTools control protocol driver for Chromium-family browsers
 * Copyright (C) 2026 The browserkit Authors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package metrics exposes Prometheus instrumentation for the core. It is
// ambient observability, not part of the DTCP protocol surface itself.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CommandsSent counts commands submitted via Connection.Send, labeled
	// by method.
	CommandsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserkit",
		Name:      "commands_sent_total",
		Help:      "Number of DTCP commands submitted for sending, by method.",
	}, []string{"method"})

	// CommandsFailed counts commands whose future completed with an error.
	CommandsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserkit",
		Name:      "commands_failed_total",
		Help:      "Number of DTCP commands that completed with an error, by method and reason.",
	}, []string{"method", "reason"})

	// SendLatency observes the time between a command being sent and its
	// reply (or failure) being observed.
	SendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "browserkit",
		Name:      "send_latency_seconds",
		Help:      "Latency between Connection.Send and its future completing.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	// RegistrySize is a gauge of live target-registry records, labeled by
	// target type.
	RegistrySize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "browserkit",
		Name:      "target_registry_size",
		Help:      "Number of targets currently tracked in the registry, by type.",
	}, []string{"type"})
)

// MustRegister registers every collector in this package against reg. It
// panics on duplicate registration, matching prometheus.MustRegister's own
// contract; call it once, typically from main().
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(CommandsSent, CommandsFailed, SendLatency, RegistrySize)
}
