package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"robot-arena/internal/logging"
)

const (
	EventBufferSize      = 1024                   // ring size
	MaxEventsPerSec      = 10000                  // global rate limit
	MaxEventsPerSource   = 200                    // per robot or client, per second
	BatchFlushSize       = 64                     // events per write
	BatchFlushInterval   = 100 * time.Millisecond // how often to flush
	SourceLimiterCleanup = 5 * time.Minute        // idle limiter expiry
)

// EventLog is a bounded, rate limited JSONL event sink.
//
// Emit never blocks: when the ring is full the oldest pending event is
// dropped. A background goroutine drains the ring to the file in batches.
type EventLog struct {
	log *zap.Logger

	mu      sync.Mutex
	ring    [EventBufferSize]Event
	head    uint64 // next sequence to assign
	tail    uint64 // next sequence to write
	running bool

	globalLimiter  *rate.Limiter
	sourceLimiters sync.Map // map[string]*sourceLimiter

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once

	file *os.File
	out  *bufio.Writer

	dropped atomic.Uint64
	total   atomic.Uint64
	written atomic.Uint64
}

type sourceLimiter struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// NewEventLog creates a stopped event log
func NewEventLog(log *zap.Logger) *EventLog {
	log = logging.OrNop(log)
	return &EventLog{
		log:           log,
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the writer. An empty path
// keeps events in memory only, which is useful for stats and tests.
func (el *EventLog) Start(filePath string) error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.running {
		return nil
	}

	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrapf(err, "open event log %s", filePath)
		}
		el.file = f
		el.out = bufio.NewWriter(f)
	}

	el.running = true
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	el.log.Info("event log started", zap.String("path", filePath))
	return nil
}

// Stop flushes pending events and closes the file. Safe to call twice.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.mu.Lock()
		wasRunning := el.running
		el.running = false
		el.mu.Unlock()

		close(el.stopChan)
		if !wasRunning {
			return
		}
		el.writerWg.Wait()

		if el.file != nil {
			if err := el.file.Close(); err != nil {
				el.log.Warn("close event log", zap.Error(err))
			}
		}
	})
}

// Emit stamps and queues an event. It returns false when the log is
// stopped or the event was rate limited.
func (el *EventLog) Emit(event Event) bool {
	if !el.globalLimiter.Allow() {
		el.dropped.Add(1)
		return false
	}
	if event.Source != "" && !el.limiterFor(event.Source).Allow() {
		el.dropped.Add(1)
		return false
	}

	el.mu.Lock()
	defer el.mu.Unlock()
	if !el.running {
		return false
	}

	if el.head-el.tail >= EventBufferSize {
		el.tail++
		el.dropped.Add(1)
	}
	el.head++
	event.Sequence = el.head
	el.ring[el.head%EventBufferSize] = event

	el.total.Add(1)
	return true
}

// EmitSimple builds and emits an event
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, source string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, source, payload))
}

func (el *EventLog) limiterFor(source string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := el.sourceLimiters.Load(source); ok {
		sl := v.(*sourceLimiter)
		sl.lastUsed.Store(now)
		return sl.limiter
	}

	sl := &sourceLimiter{limiter: rate.NewLimiter(MaxEventsPerSource, MaxEventsPerSource/10)}
	sl.lastUsed.Store(now)
	actual, _ := el.sourceLimiters.LoadOrStore(source, sl)
	return actual.(*sourceLimiter).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					break
				}
				el.flushBatch(batch)
			}
			el.flushFile()
			return
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
				el.flushFile()
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SourceLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSourceLimiters(time.Now().Add(-SourceLimiterCleanup))
		}
	}
}

func (el *EventLog) cleanupSourceLimiters(cutoff time.Time) {
	el.sourceLimiters.Range(func(key, value interface{}) bool {
		if value.(*sourceLimiter).lastUsed.Load() < cutoff.UnixNano() {
			el.sourceLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch moves up to BatchFlushSize pending events out of the ring
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.tail < el.head && len(batch) < BatchFlushSize {
		el.tail++
		batch = append(batch, el.ring[el.tail%EventBufferSize])
	}
	return batch
}

// flushBatch appends events as newline-delimited JSON
func (el *EventLog) flushBatch(batch []Event) {
	if el.out == nil {
		el.written.Add(uint64(len(batch)))
		return
	}
	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			el.log.Warn("encode event", zap.Stringer("type", event.Type), zap.Error(err))
			continue
		}
		data = append(data, '\n')
		if _, err := el.out.Write(data); err != nil {
			el.log.Error("write event log", zap.Error(err))
			return
		}
		el.written.Add(1)
	}
}

func (el *EventLog) flushFile() {
	if el.out == nil {
		return
	}
	if err := el.out.Flush(); err != nil {
		el.log.Error("flush event log", zap.Error(err))
	}
}

// EventLogStats are counters for monitoring
type EventLogStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Written uint64 `json:"written"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

// Stats returns a point-in-time copy of the counters
func (el *EventLog) Stats() EventLogStats {
	el.mu.Lock()
	pending, running := el.head-el.tail, el.running
	el.mu.Unlock()

	return EventLogStats{
		Total:   el.total.Load(),
		Dropped: el.dropped.Load(),
		Written: el.written.Load(),
		Pending: pending,
		Running: running,
	}
}
