package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lilyanlefevre/formula-corrector/internal/analysis"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/pkg/kafka"
)

type recorder struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (r *recorder) Publish(_ context.Context, e kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestCollectorPublishesToStreams(t *testing.T) {
	analyses, corrections := &recorder{}, &recorder{}
	c := NewCollector("node-a", analyses, corrections, 8)
	c.Start(context.Background())

	c.AnalysisCompleted(analysis.RunSummary{ID: "run-1", TotalMatches: 3})
	c.CorrectionsUpdated([]correction.Correction{correction.Parse("H2O")})
	c.Close()

	if analyses.len() != 1 || corrections.len() != 1 {
		t.Fatalf("published %d analyses and %d corrections", analyses.len(), corrections.len())
	}
	got := analyses.events[0].Value.(AnalysisCompleted)
	if got.Origin != "node-a" || got.Run.ID != "run-1" {
		t.Fatalf("unexpected analysis event %+v", got)
	}
	upd := corrections.events[0].Value.(CorrectionsUpdated)
	if len(upd.Corrections) != 1 || upd.Corrections[0] != "C0H2Cl0N0O1P0S0" {
		t.Fatalf("unexpected corrections event %+v", upd)
	}
}

func TestCollectorNilStreamIgnored(t *testing.T) {
	analyses := &recorder{}
	c := NewCollector("node-a", analyses, nil, 8)
	c.Start(context.Background())
	c.CorrectionsUpdated(nil)
	c.Close()
	if analyses.len() != 0 {
		t.Fatalf("unexpected events")
	}
}

func TestCollectorDropsAfterClose(t *testing.T) {
	analyses, corrections := &recorder{}, &recorder{}
	c := NewCollector("node-a", analyses, corrections, 8)
	c.Start(context.Background())
	c.Close()

	c.AnalysisCompleted(analysis.RunSummary{ID: "late"})
	c.CorrectionsUpdated([]correction.Correction{correction.Parse("H2O")})
	c.Close()

	if analyses.len() != 0 || corrections.len() != 0 {
		t.Fatalf("published %d analyses and %d corrections after close", analyses.len(), corrections.len())
	}
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	analyses := &recorder{}
	c := NewCollector("node-a", analyses, nil, 8)
	for i := 0; i < 3; i++ {
		c.AnalysisCompleted(analysis.RunSummary{ID: "r"})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Start(ctx)
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("collector did not stop")
	}
	if analyses.len() != 3 {
		t.Fatalf("drained %d events, want 3", analyses.len())
	}
}

type fakeReplicator struct {
	got []correction.Correction
	err error
}

func (f *fakeReplicator) ApplyReplicatedCorrections(_ context.Context, list []correction.Correction) error {
	f.got = list
	return f.err
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestHandleCorrectionsUpdated(t *testing.T) {
	ctx := context.Background()
	rep := &fakeReplicator{}
	h := HandleCorrectionsUpdated(rep, "node-a")

	own := encode(t, CorrectionsUpdated{Origin: "node-a", Corrections: []string{"H2O"}})
	if err := h(ctx, nil, own); err != nil || rep.got != nil {
		t.Fatalf("own event should be ignored: err=%v got=%v", err, rep.got)
	}

	if err := h(ctx, nil, []byte("not json")); err != nil {
		t.Fatalf("malformed event should be skipped, got %v", err)
	}

	peer := encode(t, CorrectionsUpdated{Origin: "node-b", Corrections: []string{"H2O", "C1H2"}})
	if err := h(ctx, nil, peer); err != nil {
		t.Fatalf("peer event: %v", err)
	}
	if len(rep.got) != 2 || rep.got[1].Name() != "C1H2Cl0N0O0P0S0" {
		t.Fatalf("unexpected replicated list %v", rep.got)
	}

	rep.err = errors.New("disk full")
	if err := h(ctx, nil, peer); err == nil {
		t.Fatalf("expected apply error to be returned")
	}
}
