package pubtable

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/napolitain/theory-sim/internal/models"
)

func sampleTable() Table {
	return Table{
		10: {Next: 12, T: 30.5},
		12: {Next: 15, T: 10.25},
		15: {Next: 15, T: 0},
	}
}

func TestJSONStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "tables")
	store, err := OpenStore(ctx, models.StoreConfig{Dialect: models.DialectJSON, JSONDir: dir})
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	empty, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load of missing table: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("missing table has %d entries", len(empty))
	}

	want := sampleTable()
	if err := store.Save(ctx, "t1", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}

	data, err := os.ReadFile(filepath.Join(dir, "t1.json"))
	if err != nil {
		t.Fatalf("read table file: %v", err)
	}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("table file is not keyed by index: %v", err)
	}
	if raw["12"]["next"] != 15 || raw["12"]["t"] != 10.25 {
		t.Errorf("unexpected entry 12 on disk: %v", raw["12"])
	}

	run := NewBuildRun("t1", 10, 15, BuildStats{Entries: 3, Forks: 7, Duration: time.Second})
	if err := store.RecordBuild(ctx, run); err != nil {
		t.Fatalf("RecordBuild failed: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, "builds.jsonl"))
	if err != nil {
		t.Fatalf("open build log: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatal("build log is empty")
	}
	var logged BuildRun
	if err := json.Unmarshal(sc.Bytes(), &logged); err != nil {
		t.Fatalf("decode build log: %v", err)
	}
	if logged.ID != run.ID || logged.Forks != 7 || logged.Theory != "t1" {
		t.Errorf("logged run = %+v", logged)
	}
}

func TestWriteCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t1_compressed.json")
	if err := WriteCompressed(path, sampleTable()); err != nil {
		t.Fatalf("WriteCompressed failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]uint32
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]uint32{"10": 12, "12": 15, "15": 15}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("compressed = %v, want %v", got, want)
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "tables.sqlite")

	store, err := OpenSQLStore(ctx, models.DialectSQLite, path)
	if err != nil {
		t.Fatalf("OpenSQLStore failed: %v", err)
	}

	if err := store.Save(ctx, "t1", sampleTable()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "csr2", Table{5: {Next: 6, T: 1}}); err != nil {
		t.Fatalf("Save csr2 failed: %v", err)
	}

	// saving again replaces rather than merges
	smaller := Table{10: {Next: 15, T: 40}, 15: {Next: 15, T: 0}}
	if err := store.Save(ctx, "t1", smaller); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	run := NewBuildRun("t1", 10, 15, BuildStats{Entries: 2, Forks: 3, Duration: 2 * time.Second})
	if err := store.RecordBuild(ctx, run); err != nil {
		t.Fatalf("RecordBuild failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// reopening must not re-apply migrations
	store, err = OpenSQLStore(ctx, models.DialectSQLite, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	got, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, smaller) {
		t.Errorf("Load = %v, want %v", got, smaller)
	}
	other, err := store.Load(ctx, "csr2")
	if err != nil {
		t.Fatalf("Load csr2 failed: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("csr2 table has %d entries, want 1", len(other))
	}

	runs, err := store.Builds(ctx, "t1")
	if err != nil {
		t.Fatalf("Builds failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].ID != run.ID || runs[0].Entries != 2 || runs[0].Duration != 2*time.Second {
		t.Errorf("stored run = %+v", runs[0])
	}
}

func TestOpenStoreUnknownDialect(t *testing.T) {
	if _, err := OpenStore(context.Background(), models.StoreConfig{Dialect: "mongo"}); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}
