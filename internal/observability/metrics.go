package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ridetrack", Name: "connected_clients", Help: "Number of live WebSocket connections"})
	LocationReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridetrack", Name: "location_reports_total", Help: "Position reports accepted by the pipeline"})
	InvalidReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridetrack", Name: "invalid_reports_total", Help: "Position reports dropped at ingress validation"})
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridetrack", Name: "broadcasts_total", Help: "Room broadcasts fanned out"})
	PersistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ridetrack", Name: "persist_failures_total", Help: "Location persist failures by reason"},
		[]string{"reason"},
	)
	PersistDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ridetrack", Name: "persist_dropped_total", Help: "Persist jobs dropped because a shard queue was full"})
)
