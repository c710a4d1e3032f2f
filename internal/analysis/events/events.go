// Package events carries analysis announcements and correction library
// replication over Kafka.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lilyanlefevre/formula-corrector/internal/analysis"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/pkg/kafka"
	"github.com/lilyanlefevre/formula-corrector/pkg/logger"
)

// AnalysisCompleted is published after every run.
type AnalysisCompleted struct {
	Origin string              `json:"origin"`
	Run    analysis.RunSummary `json:"run"`
}

// CorrectionsUpdated carries a full replacement library.
type CorrectionsUpdated struct {
	Origin      string    `json:"origin"`
	Corrections []string  `json:"corrections"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type envelope struct {
	pub   Publisher
	event kafka.Event
}

// Collector queues events and publishes them from one goroutine so callers
// never wait on the broker. A full buffer or a closed collector drops the
// event.
type Collector struct {
	origin      string
	analyses    Publisher
	corrections Publisher
	queue       chan envelope
	done        chan struct{}
	logger      *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewCollector publishes run announcements to analyses and library updates
// to corrections. Either publisher may be nil to disable that stream.
func NewCollector(origin string, analyses, corrections Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &Collector{
		origin:      origin,
		analyses:    analyses,
		corrections: corrections,
		queue:       make(chan envelope, bufferSize),
		done:        make(chan struct{}),
		logger:      logger.WithComponent("event-collector").With("origin", origin),
	}
}

// Start runs the publish loop until Close. Events still queued when ctx is
// cancelled are flushed with a short deadline.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case env, ok := <-c.queue:
				if !ok {
					return
				}
				c.publish(ctx, env)
			case <-ctx.Done():
				c.drain()
				return
			}
		}
	}()
}

func (c *Collector) AnalysisCompleted(run analysis.RunSummary) {
	c.enqueue(c.analyses, kafka.Event{
		Key:   run.ID,
		Value: AnalysisCompleted{Origin: c.origin, Run: run},
	})
}

func (c *Collector) CorrectionsUpdated(list []correction.Correction) {
	names := make([]string, len(list))
	for i, corr := range list {
		names[i] = corr.Name()
	}
	c.enqueue(c.corrections, kafka.Event{
		Key: "corrections",
		Value: CorrectionsUpdated{
			Origin:      c.origin,
			Corrections: names,
			UpdatedAt:   time.Now().UTC(),
		},
	})
}

// Close stops accepting events and waits for the loop to exit. It is safe to
// call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) enqueue(pub Publisher, event kafka.Event) {
	if pub == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Warn("event dropped, collector closed", "key", event.Key)
		return
	}
	select {
	case c.queue <- envelope{pub: pub, event: event}:
	default:
		c.logger.Warn("event dropped, buffer full", "key", event.Key)
	}
}

func (c *Collector) publish(ctx context.Context, env envelope) {
	if err := env.pub.Publish(ctx, env.event); err != nil {
		c.logger.Error("publish failed", "key", env.event.Key, "error", err)
	}
}

func (c *Collector) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case env, ok := <-c.queue:
			if !ok {
				return
			}
			c.publish(ctx, env)
		default:
			return
		}
	}
}

// Replicator applies correction libraries published by other instances.
type Replicator interface {
	ApplyReplicatedCorrections(ctx context.Context, list []correction.Correction) error
}

// HandleCorrectionsUpdated returns a consumer handler that installs
// replicated libraries. Events from origin itself are ignored.
func HandleCorrectionsUpdated(r Replicator, origin string) kafka.MessageHandler {
	log := logger.WithComponent("corrections-replicator")
	return func(ctx context.Context, _, value []byte) error {
		event, err := kafka.DecodeJSON[CorrectionsUpdated](value)
		if err != nil {
			// Undecodable messages are skipped so they do not block the partition.
			log.Warn("skipping malformed corrections event", "error", err)
			return nil
		}
		if event.Origin == origin {
			return nil
		}
		list := make([]correction.Correction, len(event.Corrections))
		for i, name := range event.Corrections {
			list[i] = correction.Parse(name)
		}
		if err := r.ApplyReplicatedCorrections(ctx, list); err != nil {
			return fmt.Errorf("applying corrections from %s: %w", event.Origin, err)
		}
		log.Info("applied replicated corrections", "from", event.Origin, "count", len(list))
		return nil
	}
}
