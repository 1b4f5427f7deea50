package verify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/ports"
)

// Pool fans one advisory out over many device targets with bounded worker
// parallelism. Each device gets its own session; one device's connection
// failure yields an ERROR result for that device only and never aborts the
// rest of the batch.
type Pool struct {
	verifier *Verifier
	dialer   ports.SessionDialer
	workers  int
	logger   *slog.Logger
}

// NewPool builds a Pool. workers below 1 is clamped to 1.
func NewPool(verifier *Verifier, dialer ports.SessionDialer, workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		verifier: verifier,
		dialer:   dialer,
		workers:  workers,
		logger:   logger,
	}
}

// VerifyTargets verifies every target against the advisory and returns one
// result per target, in target order.
func (p *Pool) VerifyTargets(ctx context.Context, targets []domain.Target, psirt domain.PSIRTAdvisory) []domain.VerificationResult {
	results := make([]domain.VerificationResult, len(targets))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.verifyOne(ctx, targets[i], psirt)
			}
		}()
	}

	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (p *Pool) verifyOne(ctx context.Context, target domain.Target, psirt domain.PSIRTAdvisory) domain.VerificationResult {
	session, err := p.dialer.Dial(ctx, target)
	if err != nil {
		connErr := domain.NewConnectionError(target.Host, err)
		p.logger.Error("could not dial device",
			"host", target.Host, "transport", target.Transport, "error", err)
		return domain.VerificationResult{
			AdvisoryID:    psirt.AdvisoryID,
			Platform:      psirt.Platform,
			Hostname:      target.Host,
			OverallStatus: domain.StatusError,
			Reason:        connErr.Error(),
		}
	}
	return p.verifier.Verify(ctx, session, psirt)
}
