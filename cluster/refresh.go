package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AutoRefresh is one choice of the auto refresh menu
type AutoRefresh struct {
	Interval    time.Duration
	Description string
}

// AutoRefreshOptions returns the supported auto refresh intervals, the first one disables it
func AutoRefreshOptions() []AutoRefresh {
	options := []AutoRefresh{{Interval: 0, Description: "Disable auto-refresh"}}
	for _, seconds := range []int{1, 5, 30, 60} {
		unit := "seconds"
		if seconds == 1 {
			unit = "second"
		}
		options = append(options, AutoRefresh{
			Interval:    time.Duration(seconds) * time.Second,
			Description: fmt.Sprintf("Auto-refresh every %d %s", seconds, unit),
		})
	}
	return options
}

type autoRefresher struct {
	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// ScheduleAutoRefresh fetches all clusters every interval, measured from the end of the previous cycle.
// ClustersLoaded fires after each cycle. It replaces any previous schedule, 0 disables it.
// The call returns once the previous schedule has stopped, so it must not be called from ClustersLoaded.
func (r *Registry) ScheduleAutoRefresh(interval time.Duration) {
	r.refresh.mu.Lock()
	defer r.refresh.mu.Unlock()

	if r.refresh.cancel != nil {
		r.refresh.cancel()
		<-r.refresh.done
		r.refresh.cancel = nil
		r.refresh.done = nil
	}
	r.refresh.interval = interval
	if interval <= 0 {
		r.log.Debug("auto refresh disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.refresh.cancel = cancel
	r.refresh.done = done

	r.log.WithField("interval", interval).Debug("auto refresh scheduled")
	go r.autoRefresh(ctx, interval, done)
}

// AutoRefreshInterval returns the interval of the current schedule, 0 when disabled
func (r *Registry) AutoRefreshInterval() time.Duration {
	r.refresh.mu.Lock()
	defer r.refresh.mu.Unlock()
	return r.refresh.interval
}

func (r *Registry) autoRefresh(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		labels := make([]string, 0)
		for _, cfg := range r.store.List() {
			labels = append(labels, cfg.Label)
		}
		r.fetchClusters(ctx, labels, false)
		if ctx.Err() != nil {
			return
		}
		r.notify(func(l Listener) { l.ClustersLoaded() })
		timer.Reset(interval)
	}
}
