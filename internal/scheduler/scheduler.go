package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/nearcare/provider-discovery/internal/discovery"
)

// Window is a query region to keep warm: popular areas get their first
// request of the day served from cache instead of paying for a refresh.
type Window struct {
	Lat          float64
	Lon          float64
	RadiusMeters float64
	Category     discovery.Category
}

// Prewarm periodically issues ordinary nearby queries for configured
// windows. The coordinator stays lazy-TTL; this just moves the refresh cost
// off the request path for known-hot regions.
type Prewarm struct {
	scheduler *gocron.Scheduler
	service   *discovery.Service
	windows   []Window
	interval  time.Duration
	log       *zap.Logger
}

// New creates a prewarm scheduler.
func New(windows []Window, interval time.Duration, service *discovery.Service, log *zap.Logger) *Prewarm {
	if log == nil {
		log = zap.NewNop()
	}
	return &Prewarm{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		windows:   windows,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (p *Prewarm) Start() error {
	if len(p.windows) == 0 {
		p.log.Info("prewarm: no windows configured; nothing to schedule")
		return nil
	}

	interval := p.interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	_, err := p.scheduler.Every(interval).Do(func() {
		p.log.Info("prewarm: warming configured windows", zap.Int("windows", len(p.windows)))

		var wg sync.WaitGroup
		for _, w := range p.windows {
			w := w
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()

				q := discovery.Query{Lat: w.Lat, Lon: w.Lon, RadiusMeters: w.RadiusMeters, Category: w.Category}
				if _, err := p.service.FindNearby(ctx, q); err != nil {
					p.log.Warn("prewarm: query failed",
						zap.Float64("lat", w.Lat),
						zap.Float64("lon", w.Lon),
						zap.Error(err))
				}
			}()
		}
		wg.Wait()
	})
	if err != nil {
		return err
	}

	p.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (p *Prewarm) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}
