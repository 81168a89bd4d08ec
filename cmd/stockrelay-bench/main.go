// Command stockrelay-bench measures relay throughput against a Redis Streams queue.
//
// It seeds a dedicated stream with synthetic forward jobs, drains it with the relay using
// an in-process handler and reports throughput and batch latency percentiles.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"

	"github.com/velmie/stockrelay"
	"github.com/velmie/stockrelay/redisstream"
)

const (
	defaultRecords      = 10000
	defaultPayloadBytes = 256
	defaultWorkers      = 4
	defaultProducers    = 4
	defaultBatchSize    = 50
	defaultRunTimeout   = 5 * time.Minute
	percentileP50       = 0.50
	percentileP95       = 0.95
	percentileP99       = 0.99
)

var (
	errRedisURLRequired  = errors.New("stockrelay-bench: redis url is required")
	errInvalidRecords    = errors.New("stockrelay-bench: records must be positive")
	errInvalidFailEvery  = errors.New("stockrelay-bench: fail-every must not be negative")
	errProcessedMismatch = errors.New("stockrelay-bench: settled records mismatch")
)

type benchConfig struct {
	redisURL     string
	records      int
	payloadBytes int
	workers      int
	producers    int
	batchSize    int
	maxRetry     int
	failEvery    int
	timeout      time.Duration
	keep         bool
}

type result struct {
	Records      int           `json:"records"`
	Forwarded    int64         `json:"forwarded"`
	Retries      int64         `json:"retries"`
	Dead         int64         `json:"dead"`
	SeedDuration time.Duration `json:"seed_duration"`
	RunDuration  time.Duration `json:"run_duration"`
	Throughput   float64       `json:"throughput_msg_per_sec"`
	Workers      int           `json:"workers"`
	BatchSize    int           `json:"batch_size"`
	PayloadBytes int           `json:"payload_bytes"`
	FailEvery    int           `json:"fail_every"`
	BatchP50Ms   float64       `json:"batch_p50_ms"`
	BatchP95Ms   float64       `json:"batch_p95_ms"`
	BatchP99Ms   float64       `json:"batch_p99_ms"`
	BatchMaxMs   float64       `json:"batch_max_ms"`
	BatchSamples int           `json:"batch_samples"`
}

func main() {
	var (
		cfg     benchConfig
		jsonOut bool
	)

	flag.StringVar(&cfg.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL, e.g. redis://localhost:6379/0")
	flag.IntVar(&cfg.records, "records", defaultRecords, "Number of messages to seed and drain")
	flag.IntVar(&cfg.payloadBytes, "payload-bytes", defaultPayloadBytes, "Approximate item payload size in bytes")
	flag.IntVar(&cfg.workers, "workers", defaultWorkers, "Relay workers")
	flag.IntVar(&cfg.producers, "producers", defaultProducers, "Concurrent seeders")
	flag.IntVar(&cfg.batchSize, "batch-size", defaultBatchSize, "Relay batch size")
	flag.IntVar(&cfg.maxRetry, "max-retry", stockrelay.DefaultMaxRetry, "Retry bound before dead-lettering")
	flag.IntVar(&cfg.failEvery, "fail-every", 0, "Fail the first attempt of every Nth item (0 disables)")
	flag.DurationVar(&cfg.timeout, "timeout", defaultRunTimeout, "Abort the run after this long")
	flag.BoolVar(&cfg.keep, "keep", false, "Keep the benchmark streams after the run")
	flag.BoolVar(&jsonOut, "json", false, "Print JSON result")
	flag.Parse()

	if err := cfg.validate(); err != nil {
		exitErr(err)
	}

	res, err := run(cfg)
	if err != nil {
		exitErr(err)
	}

	if jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
			exitErr(err)
		}

		return
	}

	fmt.Printf(
		"RESULT records=%d forwarded=%d retries=%d dead=%d run=%s throughput=%.0f/s workers=%d batch=%d "+
			"batch_p50=%.2fms batch_p99=%.2fms\n",
		res.Records, res.Forwarded, res.Retries, res.Dead, res.RunDuration, res.Throughput,
		res.Workers, res.BatchSize, res.BatchP50Ms, res.BatchP99Ms,
	)
}

func (c benchConfig) validate() error {
	if c.redisURL == "" {
		return errRedisURLRequired
	}
	if c.records <= 0 {
		return errInvalidRecords
	}
	if c.failEvery < 0 {
		return errInvalidFailEvery
	}

	return nil
}

func run(cfg benchConfig) (result, error) {
	pool := redisstream.NewPool(cfg.redisURL, cfg.workers+cfg.producers)
	defer pool.Close()

	runID := uuid.NewString()
	stream := "stockrelay_bench:" + runID
	dead := stream + ":dead"
	queue, err := redisstream.NewQueue(pool,
		redisstream.WithStream(stream),
		redisstream.WithDeadLetterStream(dead),
		redisstream.WithGroup("bench"),
	)
	if err != nil {
		return result{}, err
	}
	state, err := redisstream.NewStateStore(pool)
	if err != nil {
		return result{}, err
	}
	if !cfg.keep {
		defer dropKeys(pool, stream, dead, "f:bench:"+runID+":*")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()
	if err := queue.EnsureGroup(ctx); err != nil {
		return result{}, err
	}

	seedStart := time.Now()
	if err := seed(ctx, queue, cfg, runID); err != nil {
		return result{}, err
	}
	seedDuration := time.Since(seedStart)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	metrics := &benchMetrics{target: int64(cfg.records), cancel: stop}
	relay := stockrelay.NewRelay(queue, failingHandler(cfg.failEvery), state,
		stockrelay.WithWorkers(cfg.workers),
		stockrelay.WithBatchSize(cfg.batchSize),
		stockrelay.WithMaxRetry(cfg.maxRetry),
		stockrelay.WithReadBlock(100*time.Millisecond),
		stockrelay.WithPollInterval(0),
		stockrelay.WithCacheTTL(time.Minute),
		stockrelay.WithMetrics(metrics),
	)

	start := time.Now()
	err = relay.Run(runCtx)
	duration := time.Since(start)
	if err != nil && !errors.Is(err, context.Canceled) {
		return result{}, err
	}
	settled := metrics.Settled()
	if settled < int64(cfg.records) {
		return result{}, fmt.Errorf("%w: settled %d records, expected %d", errProcessedMismatch, settled, cfg.records)
	}

	snap := metrics.batch.Snapshot()

	return result{
		Records:      cfg.records,
		Forwarded:    metrics.forwarded.Load(),
		Retries:      metrics.retries.Load(),
		Dead:         metrics.dead.Load(),
		SeedDuration: seedDuration,
		RunDuration:  duration,
		Throughput:   float64(settled) / duration.Seconds(),
		Workers:      cfg.workers,
		BatchSize:    cfg.batchSize,
		PayloadBytes: cfg.payloadBytes,
		FailEvery:    cfg.failEvery,
		BatchP50Ms:   msFloat(snap.P50),
		BatchP95Ms:   msFloat(snap.P95),
		BatchP99Ms:   msFloat(snap.P99),
		BatchMaxMs:   msFloat(snap.Max),
		BatchSamples: snap.Count,
	}, nil
}

func seed(ctx context.Context, queue stockrelay.Producer, cfg benchConfig, runID string) error {
	producers := cfg.producers
	if producers <= 0 {
		producers = 1
	}

	var (
		next atomic.Int64
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := next.Add(1) - 1
				if i >= int64(cfg.records) || ctx.Err() != nil {
					return
				}
				if _, err := queue.Enqueue(ctx, benchMessage(runID, int(i), cfg.payloadBytes)); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()

					return
				}
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

func benchMessage(runID string, i, payloadBytes int) stockrelay.Message {
	sku := "SKU-" + strconv.Itoa(i)
	item := map[string]any{
		"sku":        sku,
		"quantity":   i % 100,
		"updated_at": "DYNAMIC_TIMESTAMP",
		"note":       filler(payloadBytes),
	}
	payload, _ := json.Marshal(map[string]any{
		"action":      "update_stock",
		"supplier_id": "bench",
		"item":        item,
	})
	state, _ := json.Marshal(map[string]any{"sku": sku, "quantity": i % 100})

	return stockrelay.Message{
		SupplierID: "bench",
		Identifier: sku,
		CacheKey:   "f:bench:" + runID + ":id:" + sku,
		CacheValue: string(state),
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
}

func filler(size int) string {
	if size <= 0 {
		return ""
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 'a' + byte(i%26)
	}

	return string(buf)
}

// failingHandler fails the first attempt of every nth item so the retry path carries load.
func failingHandler(n int) stockrelay.Handler {
	return stockrelay.HandlerFunc(func(_ context.Context, msg stockrelay.Message) error {
		if n <= 0 || msg.RetryCount > 0 {
			return nil
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(msg.Identifier, "SKU-"))
		if err == nil && idx%n == 0 {
			return stockrelay.ErrDeliveryRejected
		}

		return nil
	})
}

func dropKeys(pool *redis.Pool, stream, dead, statePattern string) {
	conn := pool.Get()
	defer conn.Close()

	_, _ = conn.Do("DEL", stream, dead)
	keys, err := redis.Strings(conn.Do("KEYS", statePattern))
	if err != nil || len(keys) == 0 {
		return
	}
	_, _ = conn.Do("DEL", redis.Args{}.AddFlat(keys)...)
}

type benchMetrics struct {
	forwarded atomic.Int64
	retries   atomic.Int64
	dead      atomic.Int64
	target    int64
	cancel    func()
	batch     batchStats
}

func (m *benchMetrics) ObserveBatchDuration(d time.Duration) {
	m.batch.Add(d)
}

func (m *benchMetrics) AddForwarded(n int) {
	m.forwarded.Add(int64(n))
	m.checkDone()
}

func (m *benchMetrics) AddErrors(int) {}

func (m *benchMetrics) AddRetries(n int) {
	m.retries.Add(int64(n))
}

func (m *benchMetrics) AddDead(n int) {
	m.dead.Add(int64(n))
	m.checkDone()
}

func (m *benchMetrics) SetPending(int) {}

// Settled counts messages that left the queue for good.
func (m *benchMetrics) Settled() int64 {
	return m.forwarded.Load() + m.dead.Load()
}

func (m *benchMetrics) checkDone() {
	if m.target > 0 && m.cancel != nil && m.Settled() >= m.target {
		m.cancel()
	}
}

type batchStats struct {
	mu      sync.Mutex
	samples []time.Duration
}

func (b *batchStats) Add(d time.Duration) {
	if d <= 0 {
		return
	}
	b.mu.Lock()
	b.samples = append(b.samples, d)
	b.mu.Unlock()
}

func (b *batchStats) Snapshot() batchSnapshot {
	b.mu.Lock()
	samples := append([]time.Duration(nil), b.samples...)
	b.mu.Unlock()
	if len(samples) == 0 {
		return batchSnapshot{}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	return batchSnapshot{
		P50:   percentile(samples, percentileP50),
		P95:   percentile(samples, percentileP95),
		P99:   percentile(samples, percentileP99),
		Max:   samples[len(samples)-1],
		Count: len(samples),
	}
}

type batchSnapshot struct {
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
	Count int
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(samples)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(samples) {
		idx = len(samples) - 1
	}

	return samples[idx]
}

func msFloat(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
