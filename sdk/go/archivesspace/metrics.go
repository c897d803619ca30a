// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type clientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.SummaryVec
}

// RegisterMetrics adds request counters and timings for this client
// to reg. Requests that fail before getting a response are counted
// with code="error".
func (c *Client) RegisterMetrics(reg prometheus.Registerer) error {
	m := &clientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archivesspace",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Number of requests sent to the ArchivesSpace backend.",
		}, []string{"method", "code"}),
		duration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  "archivesspace",
			Subsystem:  "client",
			Name:       "request_duration_seconds",
			Help:       "Time until response headers were received.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"method"}),
	}
	for _, coll := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(coll); err != nil {
			return err
		}
	}
	c.mtx.Lock()
	c.metrics = m
	c.mtx.Unlock()
	return nil
}

func (c *Client) observe(method string, resp *http.Response, err error, elapsed time.Duration) {
	c.mtx.Lock()
	m := c.metrics
	c.mtx.Unlock()
	if m == nil {
		return
	}
	code := "error"
	if err == nil && resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
