// Package scheduler runs the periodic payment reconciliation sweeps.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	maxDeliveryAttempts = 5
	reprocessBatch      = 100
)

// Sweeper is the part of the payment service the sweeps drive.
type Sweeper interface {
	ExpireStale(ctx context.Context, ttl time.Duration) (int64, error)
	ReprocessFailed(ctx context.Context, maxAttempts, limit int) (int, error)
}

type Scheduler struct {
	sweeper  Sweeper
	schedule string
	orderTTL time.Duration
	log      *logrus.Entry

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func New(sweeper Sweeper, schedule string, orderTTL time.Duration, log *logrus.Entry) *Scheduler {
	return &Scheduler{sweeper: sweeper, schedule: schedule, orderTTL: orderTTL, log: log}
}

// Start accepts five- or six-field cron expressions.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	schedule := strings.TrimSpace(s.schedule)
	if len(strings.Fields(schedule)) == 5 {
		schedule = "0 " + schedule
	}

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	c.Start()
	s.cron, s.running = c, true
	s.log.WithField("schedule", schedule).Info("payment sweep scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.log.Info("payment sweep scheduler stopped")
}

// RunOnce expires stale orders, then retries failed webhook deliveries.
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	var res Result
	start := time.Now()

	expired, err := s.sweeper.ExpireStale(ctx, s.orderTTL)
	if err != nil {
		s.log.WithError(err).Error("expire stale orders failed")
		res.Errors++
	}
	res.Expired = expired

	reprocessed, err := s.sweeper.ReprocessFailed(ctx, maxDeliveryAttempts, reprocessBatch)
	if err != nil {
		s.log.WithError(err).Error("reprocess failed deliveries failed")
		res.Errors++
	}
	res.Reprocessed = reprocessed

	s.log.WithFields(logrus.Fields{
		"expired":     res.Expired,
		"reprocessed": res.Reprocessed,
		"errors":      res.Errors,
		"duration":    time.Since(start).String(),
	}).Info("payment sweep finished")
	return res
}

type Result struct {
	Expired     int64 `json:"expired"`
	Reprocessed int   `json:"reprocessed"`
	Errors      int   `json:"errors"`
}
