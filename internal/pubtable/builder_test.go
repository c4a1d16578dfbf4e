package pubtable

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/theories"
)

// smallConfig keeps every simulation below rho e14 so a build takes well under a second
func smallConfig() models.TableConfig {
	return models.TableConfig{
		Grid:      1,
		From:      10,
		To:        13,
		CTEnd:     14,
		A:         1,
		B:         2,
		Offset:    1,
		Students:  500,
		TauFactor: 0,
	}
}

// endTable holds the finished entries above the build range
func endTable() Table {
	return Table{
		13: {Next: 13, T: 0},
		14: {Next: 14, T: 0},
	}
}

func newBuilder(t *testing.T, workers int) *Builder {
	t.Helper()
	th, err := theories.Lookup("t1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	return &Builder{Theory: th, Config: smallConfig(), Workers: workers}
}

func TestBuild(t *testing.T) {
	b := newBuilder(t, 1)

	var mu sync.Mutex
	var finished []uint32
	b.Progress = func(p Progress) {
		if p.Best == nil {
			return
		}
		mu.Lock()
		finished = append(finished, p.Start)
		mu.Unlock()
	}

	table := endTable()
	stats, err := b.Build(context.Background(), table)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("entries = %d, want 3", stats.Entries)
	}
	if !reflect.DeepEqual(finished, []uint32{12, 11, 10}) {
		t.Errorf("starts finished in order %v, want 12 11 10", finished)
	}

	for start := uint32(10); start < 13; start++ {
		e, ok := table[start]
		if !ok {
			t.Fatalf("no entry for %d", start)
		}
		if e.Next < start+1 || e.Next > start+2 {
			t.Errorf("entry %d publishes at %d, outside [%d, %d]", start, e.Next, start+1, start+2)
		}
		if e.T <= 0 || e.T <= table[e.Next].T {
			t.Errorf("entry %d has time %v, next entry has %v", start, e.T, table[e.Next].T)
		}
	}

	steps, err := Chain(table, 10, 1)
	if err != nil {
		t.Fatalf("Chain over built table: %v", err)
	}
	if last := steps[len(steps)-1]; last.Remaining != 0 {
		t.Errorf("chain ends with %v remaining", last.Remaining)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	seq, par := endTable(), endTable()
	if _, err := newBuilder(t, 1).Build(context.Background(), seq); err != nil {
		t.Fatalf("sequential build: %v", err)
	}
	if _, err := newBuilder(t, 4).Build(context.Background(), par); err != nil {
		t.Fatalf("parallel build: %v", err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Errorf("parallel table differs:\nseq %v\npar %v", seq, par)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table := endTable()
	stats, err := newBuilder(t, 2).Build(ctx, table)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if stats.Entries != 0 || len(table) != 2 {
		t.Errorf("cancelled build wrote %d entries", stats.Entries)
	}
}

func TestBuildInvalidRange(t *testing.T) {
	b := newBuilder(t, 1)
	b.Config.From, b.Config.To = 13, 13
	if _, err := b.Build(context.Background(), Table{}); err == nil {
		t.Fatal("expected error for empty range")
	}
}

func TestBuildCancelledMidStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := newBuilder(t, 1)
	b.Progress = func(p Progress) {
		if p.Best == nil && p.EndsDone == 1 {
			cancel()
		}
	}

	table := endTable()
	stats, err := b.Build(ctx, table)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if stats.Entries != 0 {
		t.Errorf("entries = %d, want 0", stats.Entries)
	}
	if _, ok := table[12]; ok || len(table) != 2 {
		t.Errorf("interrupted start wrote an entry: %v", table)
	}
}
