package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"recibos/internal/amqp"
	"recibos/internal/log"
)

// Consumer delivers refresh requests until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// RunCleaner removes finished sync runs older than age.
type RunCleaner interface {
	CleanupSyncRuns(ctx context.Context, age time.Duration) (int64, error)
}

// ProcessorConfig holds configuration for the processor
type ProcessorConfig struct {
	// CleanupInterval is how often old sync runs are removed (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old a sync run must be before cleanup (default: 30 days)
	CleanupAge time.Duration
}

func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		CleanupInterval: time.Hour,
		CleanupAge:      30 * 24 * time.Hour,
	}
}

// Processor feeds consumed refresh requests to a SyncWorker and prunes the
// sync run history.
type Processor struct {
	worker   *SyncWorker
	consumer Consumer
	cleaner  RunCleaner
	config   ProcessorConfig
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewProcessor accepts a nil consumer, in which case only the cleanup runs.
func NewProcessor(worker *SyncWorker, consumer Consumer, cleaner RunCleaner, config ProcessorConfig) *Processor {
	def := DefaultProcessorConfig()
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.CleanupAge <= 0 {
		config.CleanupAge = def.CleanupAge
	}
	return &Processor{
		worker:   worker,
		consumer: consumer,
		cleaner:  cleaner,
		config:   config,
		logger:   log.Default(log.ComponentWorker),
	}
}

// Start begins processing. Returns an error if already running.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("processor is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.doneCh = make(chan struct{})

	var wg sync.WaitGroup
	if p.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.consumer.Consume(runCtx, p.worker.HandleRefresh); err != nil && runCtx.Err() == nil {
				p.logger.ErrorContext(runCtx, "Consumer stopped", log.FieldError, err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.cleanupLoop(runCtx)
	}()
	go func() {
		wg.Wait()
		close(p.doneCh)
	}()

	p.logger.InfoContext(ctx, "Processor started",
		"consuming", p.consumer != nil,
		"cleanup_interval", p.config.CleanupInterval)
	return nil
}

// Stop cancels processing and waits for it to finish.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	done := p.doneCh
	p.mu.Unlock()

	select {
	case <-done:
		p.logger.InfoContext(ctx, "Processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) cleanupLoop(ctx context.Context) {
	if p.cleaner == nil {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanup(ctx)
		}
	}
}

func (p *Processor) cleanup(ctx context.Context) {
	n, err := p.cleaner.CleanupSyncRuns(ctx, p.config.CleanupAge)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to cleanup sync runs", log.FieldError, err)
		return
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "Old sync runs removed", log.FieldCount, n)
	}
}
