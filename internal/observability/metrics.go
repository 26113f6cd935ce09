package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/maturity-assessment-backend/internal/platform/envutil"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	autosaveFlushes  *CounterVec
	autosaveLatency  *HistogramVec
	answersSaved     *CounterVec
	stageCompletions *Counter
	recomputes       *CounterVec
	recomputeLatency *HistogramVec
	identityLookups  *CounterVec
	activeAttempts   *Gauge
	realtimeEvents   *CounterVec

	aggregateOps       *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	n := envutil.Int("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if n <= 0 {
		n = 10
	}
	return time.Duration(n) * time.Second
}

// Init builds the process-wide registry, or returns nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered Metrics; tests use it directly.
func New() *Metrics {
	fast := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	return &Metrics{
		apiRequests: NewCounterVec("ma_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("ma_api_request_duration_seconds", "API request latency by method/route/status.", []string{"method", "route", "status"}, fast),
		apiInflight: NewGauge("ma_api_inflight_requests", "In-flight API requests."),

		autosaveFlushes:  NewCounterVec("ma_autosave_flushes_total", "Autosave flushes by trigger and outcome.", []string{"trigger", "status"}),
		autosaveLatency:  NewHistogramVec("ma_autosave_flush_duration_seconds", "Autosave flush latency by trigger.", []string{"trigger"}, fast),
		answersSaved:     NewCounterVec("ma_answers_saved_total", "Answers persisted by outcome.", []string{"status"}),
		stageCompletions: NewCounter("ma_stage_completions_total", "Stages that transitioned to completed."),
		recomputes:       NewCounterVec("ma_score_recomputes_total", "Score recomputes by trigger and outcome.", []string{"trigger", "status"}),
		recomputeLatency: NewHistogramVec("ma_score_recompute_duration_seconds", "Score recompute latency.", []string{"trigger"}, fast),
		identityLookups:  NewCounterVec("ma_identity_lookups_total", "Identity lookups by key kind and outcome.", []string{"by", "outcome"}),
		activeAttempts:   NewGauge("ma_active_attempts", "Attempts held by the session controller."),
		realtimeEvents:   NewCounterVec("ma_realtime_events_total", "Realtime events published by type.", []string{"event"}),

		aggregateOps:       NewHistogramVec("ma_aggregate_operation_duration_seconds", "Aggregate write latency by operation/status.", []string{"operation", "status"}, fast),
		aggregateConflicts: NewCounterVec("ma_aggregate_conflicts_total", "Aggregate writes that failed with a conflict.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("ma_aggregate_retryable_total", "Aggregate writes that failed with a retryable error.", []string{"operation"}),

		dbStats:   NewGaugeVec("ma_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("ma_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("ma_redis_ping_seconds", "Latency of the last redis ping."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.autosaveFlushes, m.autosaveLatency, m.answersSaved, m.stageCompletions,
		m.recomputes, m.recomputeLatency, m.identityLookups, m.activeAttempts, m.realtimeEvents,
		m.aggregateOps, m.aggregateConflicts, m.aggregateRetries,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	route = strings.TrimSpace(route)
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAutosaveFlush(trigger, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.autosaveFlushes.Inc(trigger, status)
	m.autosaveLatency.Observe(dur.Seconds(), trigger)
}

func (m *Metrics) AddAnswersSaved(status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.answersSaved.Add(float64(n), status)
}

func (m *Metrics) IncStageCompletion() {
	if m == nil {
		return
	}
	m.stageCompletions.Inc()
}

func (m *Metrics) ObserveRecompute(trigger, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.recomputes.Inc(trigger, status)
	m.recomputeLatency.Observe(dur.Seconds(), trigger)
}

func (m *Metrics) IncIdentityLookup(by, outcome string) {
	if m == nil {
		return
	}
	m.identityLookups.Inc(by, outcome)
}

func (m *Metrics) SetActiveAttempts(n int) {
	if m == nil {
		return
	}
	m.activeAttempts.Set(float64(n))
}

func (m *Metrics) IncRealtimeEvent(event string) {
	if m == nil {
		return
	}
	m.realtimeEvents.Inc(event)
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Observe(dur.Seconds(), op, status)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(op)
}

// StartDBCollector samples pool statistics until ctx ends.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings rdb on the scrape interval until ctx ends.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *goredis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
