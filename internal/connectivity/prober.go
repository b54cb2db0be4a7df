package connectivity

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Prober samples network reachability by issuing a HEAD request to a target.
// Any HTTP answer, whatever its status, counts as online.
type Prober struct {
	target   string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
}

// DefaultProbeInterval is used when NewProber is given a non-positive interval.
const DefaultProbeInterval = 15 * time.Second

func NewProber(target string, interval time.Duration, l *zap.Logger) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Prober{
		target:   target,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   l,
	}
}

// Check reports whether the target is currently reachable.
func (p *Prober) Check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.target, nil)
	if err != nil {
		p.logger.Warn("invalid probe target", zap.String("target", p.target), zap.Error(err))
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", zap.String("target", p.target), zap.Error(err))
		return false
	}
	resp.Body.Close()
	return true
}

// Run emits one event per probe until ctx is done, then closes out.
// Repeated events for an unchanged state are expected and left to the watcher.
func (p *Prober) Run(ctx context.Context, out chan<- Event) {
	defer close(out)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e := EventOffline
			if p.Check(ctx) {
				e = EventOnline
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
