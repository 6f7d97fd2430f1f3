// Package historian drains the action queue in redis and archives the records
// in postgres in batches. Games that stop producing actions without ending
// are marked abandoned.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/hanabi/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Store is where batches end up. database.Archive implements it.
type Store interface {
	InsertActions(ctx context.Context, recs []models.ActionRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Options tune batching and abandonment.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration // duration until an open game is marked abandoned

	// MaxPending caps records held in memory while the store is failing.
	// Reading pauses at the cap and the rest waits in redis. Defaults to
	// 10 batches.
	MaxPending int
}

// Service moves records from the queue to the store.
type Service struct {
	rdb   *redis.Client
	store Store
	opts  Options
	log   logrus.FieldLogger

	lastActivity sync.Map // uuid.UUID -> time.Time, open games only

	batchMu sync.Mutex
	batch   []models.ActionRecord
}

func New(rdb *redis.Client, store Store, opts Options, logger logrus.FieldLogger) *Service {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.MaxPending < opts.BatchSize {
		opts.MaxPending = 10 * opts.BatchSize
	}
	return &Service{
		rdb:   rdb,
		store: store,
		opts:  opts,
		log:   logger,
		batch: make([]models.ActionRecord, 0, opts.BatchSize),
	}
}

// Run blocks until ctx is cancelled or a loop fails, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	s.log.Infof("Historian started on queue %s.", s.opts.Queue)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.flushLoop(gctx) })
	g.Go(func() error { return s.inactivityLoop(gctx) })
	err := g.Wait()

	// the run context is gone; give the last flush its own deadline
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.flush(flushCtx)
	s.log.Info("Historian shut down.")
	return err
}

// readLoop pops one record at a time. BLPop times out regularly so ctx is
// checked even when the queue is idle.
func (s *Service) readLoop(ctx context.Context) error {
	for {
		if s.backlogged() {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		res, err := s.rdb.BLPop(ctx, time.Second, s.opts.Queue).Result()
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			s.log.Errorf("BLPop: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		s.handlePayload(ctx, []byte(res[1]))
	}
}

func (s *Service) handlePayload(ctx context.Context, payload []byte) {
	var rec models.ActionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		s.log.Warnf("Invalid action record: %v", err)
		return
	}
	if rec.Ends() {
		s.lastActivity.Delete(rec.GameID)
	} else {
		s.lastActivity.Store(rec.GameID, time.Now())
	}
	s.appendToBatch(ctx, rec)
}

// appendToBatch adds a record and flushes once the batch is full.
func (s *Service) appendToBatch(ctx context.Context, rec models.ActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()
	if full {
		s.flush(ctx)
	}
}

// backlogged reports whether failed flushes have filled the pending batch.
func (s *Service) backlogged() bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch) >= s.opts.MaxPending
}

func (s *Service) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// flush writes the pending batch in one transaction. A failed batch is put
// back in front of newer records and retried on the next flush.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	if len(s.batch) == 0 {
		return
	}
	pending := make([]models.ActionRecord, len(s.batch))
	copy(pending, s.batch)

	if err := s.store.InsertActions(ctx, pending); err != nil {
		s.log.Errorf("Flush of %d actions failed: %v", len(pending), err)
		return
	}
	s.batch = s.batch[:0]
	s.log.Debugf("Flushed %d actions to DB.", len(pending))
}

func (s *Service) inactivityLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.abandonIdle(ctx, now)
		}
	}
}

// abandonIdle marks games with no action since now-Inactivity as abandoned.
func (s *Service) abandonIdle(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val any) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.opts.Inactivity {
			return true
		}
		// the game row may still be waiting in the batch
		s.flush(ctx)
		if err := s.store.MarkAbandoned(ctx, gameID); err != nil {
			s.log.Errorf("Failed to mark game %s abandoned: %v", gameID, err)
			return true
		}
		s.lastActivity.Delete(gameID)
		s.log.Infof("Marked game %s as abandoned due to inactivity.", gameID)
		return true
	})
}
