package services

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/ridetrack/ridetrack-backend/internal/observability"
)

// LocationReport is one inbound GPS fix for a user in a ride. Latitude and
// Longitude are pointers so a missing field is distinguishable from a fix
// on the equator or the prime meridian.
type LocationReport struct {
	RideCode          string     `json:"ride_code"`
	UserID            uint       `json:"user_id"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	LocationTimestamp *time.Time `json:"location_timestamp,omitempty"`
}

// LocationUpdate is the room-scoped broadcast produced for each valid report.
type LocationUpdate struct {
	UserID            uint      `json:"user_id"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	LocationTimestamp time.Time `json:"location_timestamp"`
}

type persistJob struct {
	origin   *Client
	rideCode string
	userID   uint
	lat      float64
	lon      float64
	ts       time.Time
}

// Pipeline accepts position reports, broadcasts them to the ride's room
// immediately, and persists the latest fix on a sharded worker pool. The
// persist path never delays or retracts a broadcast.
//
// Jobs for the same (user, ride) pair always hash to the same shard, so
// they are applied in submission order; different pairs spread across
// shards and proceed concurrently.
type Pipeline struct {
	hub       *Hub
	directory RideDirectory
	store     ParticipationStore
	cache     *LocationCache

	shards  []chan persistJob
	wg      sync.WaitGroup
	timeout time.Duration
}

// PipelineOption tweaks pipeline construction.
type PipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	shards    int
	queueSize int
	timeout   time.Duration
}

// WithShards sets the number of persist workers.
func WithShards(n int) PipelineOption {
	return func(c *pipelineConfig) { c.shards = n }
}

// WithQueueSize sets the per-shard queue capacity.
func WithQueueSize(n int) PipelineOption {
	return func(c *pipelineConfig) { c.queueSize = n }
}

// WithPersistTimeout bounds each storage write.
func WithPersistTimeout(d time.Duration) PipelineOption {
	return func(c *pipelineConfig) { c.timeout = d }
}

// NewPipeline builds the pipeline and starts its persist workers. The cache
// may be nil when redis is not configured.
func NewPipeline(hub *Hub, directory RideDirectory, store ParticipationStore, cache *LocationCache, opts ...PipelineOption) *Pipeline {
	cfg := pipelineConfig{shards: 8, queueSize: 256, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pipeline{
		hub:       hub,
		directory: directory,
		store:     store,
		cache:     cache,
		shards:    make([]chan persistJob, cfg.shards),
		timeout:   cfg.timeout,
	}
	for i := range p.shards {
		p.shards[i] = make(chan persistJob, cfg.queueSize)
		p.wg.Add(1)
		go p.worker(p.shards[i])
	}
	return p
}

// ReportLocation runs one report through the pipeline. Invalid reports are
// dropped silently: the stream is best-effort and a bad frame must not
// disturb the connection. origin may be nil for reports that arrive outside
// a WebSocket connection (for example the simulation harness); persist
// failures then go to the log only.
func (p *Pipeline) ReportLocation(origin *Client, report LocationReport) {
	if !validReport(report) {
		observability.InvalidReportsTotal.Inc()
		log.Printf("Dropping invalid location report for ride %q", report.RideCode)
		return
	}

	ts := time.Now().UTC()
	if report.LocationTimestamp != nil {
		ts = report.LocationTimestamp.UTC()
	}

	update := LocationUpdate{
		UserID:            report.UserID,
		Latitude:          *report.Latitude,
		Longitude:         *report.Longitude,
		LocationTimestamp: ts,
	}

	// Broadcast first. The room sees the fix before any storage I/O
	// happens, and keeps it even if the persist step fails later.
	message, err := json.Marshal(Event{Type: EventLocationUpdate, Data: update})
	if err != nil {
		log.Printf("Error marshaling location update: %v", err)
		return
	}
	p.hub.Broadcast(report.RideCode, message)
	observability.LocationReportsTotal.Inc()

	job := persistJob{
		origin:   origin,
		rideCode: report.RideCode,
		userID:   report.UserID,
		lat:      update.Latitude,
		lon:      update.Longitude,
		ts:       ts,
	}
	p.enqueue(p.shardFor(report.UserID, report.RideCode), job)
}

// enqueue places the job on its shard. When the queue is full the oldest
// waiting job is evicted to make room: the incoming fix always gets queued,
// and because same-pair jobs share a FIFO queue, eviction from the head can
// never discard a pair's newest fix while an older one survives.
func (p *Pipeline) enqueue(shard int, job persistJob) {
	for {
		select {
		case p.shards[shard] <- job:
			return
		default:
		}
		select {
		case stale := <-p.shards[shard]:
			observability.PersistDroppedTotal.Inc()
			log.Printf("Persist queue full, evicting stale fix for user %d in ride %s", stale.userID, stale.rideCode)
		default:
		}
	}
}

func validReport(r LocationReport) bool {
	if r.RideCode == "" || r.UserID == 0 || r.Latitude == nil || r.Longitude == nil {
		return false
	}
	if *r.Latitude < -90 || *r.Latitude > 90 {
		return false
	}
	if *r.Longitude < -180 || *r.Longitude > 180 {
		return false
	}
	return true
}

func (p *Pipeline) shardFor(userID uint, rideCode string) int {
	h := fnv.New32a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(userID >> (8 * i))
	}
	h.Write(buf[:])
	h.Write([]byte(rideCode))
	return int(h.Sum32() % uint32(len(p.shards)))
}

func (p *Pipeline) worker(jobs <-chan persistJob) {
	defer p.wg.Done()
	for job := range jobs {
		p.persist(job)
	}
}

func (p *Pipeline) persist(job persistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	rideID, err := p.directory.RideIDByCode(ctx, job.rideCode)
	if err != nil {
		p.persistFailed(job, "ride_not_found", "Ride "+job.rideCode+" not found")
		return
	}

	if err := p.store.UpdateLocation(ctx, job.userID, rideID, job.lat, job.lon, job.ts); err != nil {
		switch {
		case errors.Is(err, ErrNotAParticipant):
			p.persistFailed(job, "not_a_participant", err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			p.persistFailed(job, "timeout", "location persist timed out")
		default:
			p.persistFailed(job, "storage", "failed to persist location")
			log.Printf("Location persist error for user %d in ride %s: %v", job.userID, job.rideCode, err)
		}
		return
	}

	if p.cache != nil {
		if err := p.cache.SetRiderLocation(ctx, job.rideCode, job.userID, job.lat, job.lon, job.ts); err != nil {
			log.Printf("Redis location cache error: %v", err)
		}
		if err := p.cache.PublishLocationUpdate(ctx, job.rideCode, job.userID, job.lat, job.lon, job.ts); err != nil {
			log.Printf("Redis publish error: %v", err)
		}
	}
}

// persistFailed signals a soft failure to the origin connection only. The
// broadcast has already happened and is deliberately not retracted.
func (p *Pipeline) persistFailed(job persistJob, reason, msg string) {
	observability.PersistFailuresTotal.WithLabelValues(reason).Inc()
	log.Printf("Persist failure (%s) for user %d in ride %s", reason, job.userID, job.rideCode)
	if job.origin != nil {
		job.origin.SendError(msg)
	}
}

// Close stops accepting work and waits for in-flight persists to finish.
func (p *Pipeline) Close() {
	for _, ch := range p.shards {
		close(ch)
	}
	p.wg.Wait()
}
