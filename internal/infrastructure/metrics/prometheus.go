// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bilifx"

var (
	// UpstreamRequestsTotal tracks outbound calls to collaborator APIs.
	// Labels:
	//   - api: view, playurl, eplist, shortlink, relay
	//   - status: ok, not_found, malformed, unavailable
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream API requests",
		},
		[]string{"api", "status"},
	)

	// UpstreamRetriesTotal counts retry attempts after transient failures.
	UpstreamRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Total number of retried upstream requests",
		},
	)

	// CacheOperationsTotal tracks response cache operations.
	// Labels:
	//   - operation: get, set
	//   - status: hit, miss, success, error
	//   - backend: redis, memory
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of response cache operations",
		},
		[]string{"operation", "status", "backend"},
	)

	// RelayBytesTotal counts bytes forwarded through the stream relay.
	RelayBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_bytes_total",
			Help:      "Total number of bytes relayed from upstream media servers",
		},
	)
)

// Upstream API label constants.
const (
	APIView      = "view"
	APIPlayURL   = "playurl"
	APIEpList    = "eplist"
	APIShortLink = "shortlink"
	APIRelay     = "relay"
)

// Upstream status label constants.
const (
	StatusOK          = "ok"
	StatusNotFound    = "not_found"
	StatusMalformed   = "malformed"
	StatusUnavailable = "unavailable"
)

// Cache operation constants.
const (
	CacheOpGet = "get"
	CacheOpSet = "set"
)

// Cache status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache backend constants.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)
