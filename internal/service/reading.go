// Package service provides the reading business logic: polling Dexcom Share,
// recording readings and answering queries about them.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atinyakov/DexWatch/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrHistoryUnavailable is returned by History when no repository is configured.
var ErrHistoryUnavailable = errors.New("reading history is not configured")

// Fetcher returns the next reading from Dexcom Share.
type Fetcher interface {
	Next(ctx context.Context) (models.Reading, error)
}

// ReadingRepository defines the persistence operations
// required by the reading service.
type ReadingRepository interface {
	// SaveReading stores r and reports whether it was new.
	SaveReading(ctx context.Context, r models.StoredReading) (bool, error)
	// LatestReading returns the newest stored reading or models.ErrNotFound.
	LatestReading(ctx context.Context) (models.StoredReading, error)
	// ListReadings returns up to limit readings, newest first.
	ListReadings(ctx context.Context, limit int) ([]models.StoredReading, error)
}

// ReadingCache holds the latest reading for fast lookups.
type ReadingCache interface {
	Put(ctx context.Context, r models.StoredReading) error
	Latest(ctx context.Context) (models.StoredReading, error)
}

// ReadingService polls a Fetcher and records the readings it returns.
// repo and cache are optional.
type ReadingService struct {
	fetcher Fetcher
	repo    ReadingRepository
	cache   ReadingCache
	log     *zap.Logger

	mu     sync.RWMutex
	latest *models.StoredReading
}

// NewReadingService constructs a ReadingService. Pass nil for repo or cache
// to run without them.
func NewReadingService(fetcher Fetcher, repo ReadingRepository, cache ReadingCache, log *zap.Logger) *ReadingService {
	return &ReadingService{fetcher: fetcher, repo: repo, cache: cache, log: log}
}

// Poll fetches one reading and records it. A storage failure is returned
// after the reading has been kept in memory.
func (s *ReadingService) Poll(ctx context.Context) (models.StoredReading, error) {
	pollID := uuid.NewString()
	log := s.log.With(zap.String("poll_id", pollID))

	reading, err := s.fetcher.Next(ctx)
	if err != nil {
		log.Error("poll failed", zap.Error(err))
		return models.StoredReading{}, err
	}

	stored := models.StoredReading{ID: uuid.NewString(), PollID: pollID, Reading: reading}
	log.Info("got reading",
		zap.Int("bg", reading.BG),
		zap.String("trend", reading.TrendEnglish),
		zap.Int64("lag", reading.ReadingLag),
	)

	s.mu.Lock()
	s.latest = &stored
	s.mu.Unlock()

	var errs []error
	if s.repo != nil {
		inserted, err := s.repo.SaveReading(ctx, stored)
		if err != nil {
			errs = append(errs, fmt.Errorf("save reading: %w", err))
		} else if !inserted {
			log.Debug("reading already stored", zap.Int64("last_reading_time", reading.LastReadingTime))
		}
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, stored); err != nil {
			errs = append(errs, fmt.Errorf("cache reading: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Error("failed to record reading", zap.Error(err))
		return stored, err
	}
	return stored, nil
}

// Latest returns the most recent reading known to this process, the cache or
// the repository, in that order. It returns models.ErrNotFound when none has one.
func (s *ReadingService) Latest(ctx context.Context) (models.StoredReading, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest != nil {
		return *latest, nil
	}

	if s.cache != nil {
		r, err := s.cache.Latest(ctx)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			s.log.Warn("cache lookup failed", zap.Error(err))
		}
	}
	if s.repo != nil {
		return s.repo.LatestReading(ctx)
	}
	return models.StoredReading{}, models.ErrNotFound
}

// History returns up to limit stored readings, newest first.
func (s *ReadingService) History(ctx context.Context, limit int) ([]models.StoredReading, error) {
	if s.repo == nil {
		return nil, ErrHistoryUnavailable
	}
	return s.repo.ListReadings(ctx, limit)
}
