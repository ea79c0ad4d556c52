// Package storage archives engagement events to PostgreSQL through a
// non-blocking buffer with batched inserts.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/domain"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
)

const (
	// columnsPerRow is the number of columns inserted per event row.
	columnsPerRow = 6

	// insertBatchSize is the maximum number of rows per INSERT statement.
	insertBatchSize = 50

	// flushTimeout is the context timeout for each flush operation.
	flushTimeout = 5 * time.Second
)

// Buffer is a channel-based event buffer for non-blocking ingestion.
// Handlers enqueue events here so archival never delays a response.
type Buffer struct {
	events chan domain.EngagementEvent
	closed chan struct{}
	once   sync.Once
}

// NewBuffer creates a buffer with a buffered channel of the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		events: make(chan domain.EngagementEvent, capacity),
		closed: make(chan struct{}),
	}
}

// Send performs a non-blocking send of an event into the buffer.
// It returns false if the buffer channel is full.
func (b *Buffer) Send(event domain.EngagementEvent) bool {
	select {
	case b.events <- event:
		return true
	default:
		return false
	}
}

// Len returns the number of events currently in the buffer channel.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Close signals the buffer to stop accepting events.
// It is safe to call multiple times.
func (b *Buffer) Close() {
	b.once.Do(func() {
		close(b.closed)
	})
}

// Archive manages buffered writes of engagement events to PostgreSQL.
type Archive struct {
	db             *sql.DB
	buffer         *Buffer
	log            logger.Logger
	flushInterval  time.Duration
	flushThreshold int
	onFlush        func(count int)
	wg             sync.WaitGroup
}

// NewArchive creates an Archive that reads events from buffer and
// batch-inserts them.
func NewArchive(
	db *sql.DB,
	buffer *Buffer,
	log logger.Logger,
	flushInterval time.Duration,
	flushThreshold int,
) *Archive {
	return &Archive{
		db:             db,
		buffer:         buffer,
		log:            log,
		flushInterval:  flushInterval,
		flushThreshold: flushThreshold,
	}
}

// WithFlushHook registers a callback invoked with the number of events
// successfully written in each flush. Used for metrics.
// Must be called before Start.
func (a *Archive) WithFlushHook(hook func(count int)) *Archive {
	a.onFlush = hook
	return a
}

// Start launches the background goroutine that reads events and flushes batches.
func (a *Archive) Start() {
	a.wg.Add(1)
	go a.flushLoop()
}

// Stop signals the buffer to close and waits for the flush goroutine to finish.
func (a *Archive) Stop() {
	a.buffer.Close()
	a.wg.Wait()
}

// flushLoop accumulates a batch and flushes when it reaches
// flushThreshold or the flushInterval ticker fires.
func (a *Archive) flushLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	batch := make([]domain.EngagementEvent, 0, a.flushThreshold)

	for {
		select {
		case event := <-a.buffer.events:
			batch = append(batch, event)
			if len(batch) >= a.flushThreshold {
				a.flush(batch)
				batch = make([]domain.EngagementEvent, 0, a.flushThreshold)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = make([]domain.EngagementEvent, 0, a.flushThreshold)
			}

		case <-a.buffer.closed:
			a.drain(&batch)
			if len(batch) > 0 {
				a.flush(batch)
			}
			return
		}
	}
}

// drain reads all remaining events from the buffer channel into the batch.
func (a *Archive) drain(batch *[]domain.EngagementEvent) {
	for {
		select {
		case event := <-a.buffer.events:
			*batch = append(*batch, event)
		default:
			return
		}
	}
}

// flush writes a batch of events to PostgreSQL in chunks of insertBatchSize.
func (a *Archive) flush(batch []domain.EngagementEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	for start := 0; start < len(batch); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(batch) {
			end = len(batch)
		}

		if err := a.batchInsert(ctx, batch[start:end]); err != nil {
			a.log.Error("Failed to insert engagement events",
				logger.Error(err),
				logger.Int("batch_size", end-start),
			)
			continue
		}

		if a.onFlush != nil {
			a.onFlush(end - start)
		}
	}

	a.log.Debug("Flushed engagement events",
		logger.Int("total", len(batch)),
	)
}

// batchInsert builds and executes a single INSERT statement with multiple
// value tuples.
func (a *Archive) batchInsert(ctx context.Context, events []domain.EngagementEvent) error {
	if len(events) == 0 {
		return nil
	}

	args := make([]any, 0, len(events)*columnsPerRow)
	var sb strings.Builder

	sb.WriteString("INSERT INTO engagement_events (id, content_type, slug, action, " +
		"user_agent_hash, occurred_at) VALUES ")

	for i := range events {
		if i > 0 {
			sb.WriteString(", ")
		}

		writeValueTuple(&sb, i)

		args = append(args,
			events[i].ID, string(events[i].ContentType), events[i].Slug,
			string(events[i].Action), events[i].UserAgentHash, events[i].OccurredAt,
		)
	}

	_, err := a.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("exec batch insert: %w", err)
	}

	return nil
}

// Placeholder column offsets within one row tuple (1-indexed PostgreSQL $N).
const (
	colID            = 1
	colContentType   = 2
	colSlug          = 3
	colAction        = 4
	colUserAgentHash = 5
	colOccurredAt    = 6
)

// writeValueTuple writes a single ($1, ..., $6) placeholder tuple offset
// by the row index.
func writeValueTuple(sb *strings.Builder, rowIndex int) {
	base := rowIndex * columnsPerRow
	fmt.Fprintf(sb, "($%d, $%d, $%d, $%d, $%d, $%d)",
		base+colID, base+colContentType, base+colSlug,
		base+colAction, base+colUserAgentHash, base+colOccurredAt,
	)
}
