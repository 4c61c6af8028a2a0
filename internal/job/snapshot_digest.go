package job

import (
	"context"
	"log"
	"time"

	"portfolio-advisor/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const defaultDigestInterval = time.Hour

// SnapshotQuerier produces the aggregated market snapshot for each digest.
type SnapshotQuerier interface {
	Snapshot(ctx context.Context) domain.MarketSnapshot
}

// DigestSink receives the snapshot and fans it out to subscribed chats.
type DigestSink interface {
	SubscriberCount() int
	NotifySnapshot(ctx context.Context, snapshot domain.MarketSnapshot) error
}

// SnapshotDigest periodically pushes a market snapshot digest to subscribers.
type SnapshotDigest struct {
	tracer   trace.Tracer
	market   SnapshotQuerier
	sink     DigestSink
	interval time.Duration
}

func NewSnapshotDigest(tracer trace.Tracer, market SnapshotQuerier, sink DigestSink, interval time.Duration) *SnapshotDigest {
	if interval <= 0 {
		interval = defaultDigestInterval
	}
	return &SnapshotDigest{
		tracer:   tracer,
		market:   market,
		sink:     sink,
		interval: interval,
	}
}

// Start runs the digest loop. Blocks until ctx is cancelled. The first
// digest goes out after one full interval, not at startup.
func (d *SnapshotDigest) Start(ctx context.Context) {
	if d.market == nil || d.sink == nil {
		log.Println("Snapshot digest disabled: missing market service or sink")
		<-ctx.Done()
		return
	}

	log.Println("Snapshot digest starting...")
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot digest stopped")
			return
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *SnapshotDigest) runOnce(ctx context.Context) {
	ctx, span := d.tracer.Start(ctx, "job.snapshot-digest")
	defer span.End()

	// Skip the expensive snapshot fan-out when nobody is listening.
	if d.sink.SubscriberCount() == 0 {
		return
	}

	snapshot := d.market.Snapshot(ctx)
	if err := d.sink.NotifySnapshot(ctx, snapshot); err != nil {
		log.Printf("snapshot digest delivery error: %v", err)
	}
}
