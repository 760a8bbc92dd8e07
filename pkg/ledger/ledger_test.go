package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/olsonanl/seed-profiles/pkg/cluster"
)

func openTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	led, err := Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })
	return led, path
}

func TestBeginRun(t *testing.T) {
	led, _ := openTestLedger(t)

	run_id, err := led.BeginRun(context.Background())
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if !strings.HasPrefix(run_id, "run-") {
		t.Errorf("run id %q missing prefix", run_id)
	}
	if led.RunID() != run_id {
		t.Errorf("RunID() = %q, want %q", led.RunID(), run_id)
	}
}

func TestJobStatusUpsert(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	if _, err := led.BeginRun(ctx); err != nil {
		t.Fatal(err)
	}

	if err := led.SetJobStatus(ctx, "all", "cl_00001", JobQueued, nil); err != nil {
		t.Fatalf("queued: %v", err)
	}
	if err := led.SetJobStatus(ctx, "all", "cl_00001", JobRunning, nil); err != nil {
		t.Fatalf("running: %v", err)
	}

	done, err := led.CompletedClusters(ctx, "all")
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 0 {
		t.Errorf("got %d completed before completion", len(done))
	}

	if err := led.SetJobStatus(ctx, "all", "cl_00001", JobCompleted, nil); err != nil {
		t.Fatalf("completed: %v", err)
	}

	done, err = led.CompletedClusters(ctx, "all")
	if err != nil {
		t.Fatal(err)
	}
	if !done["cl_00001"] {
		t.Error("cl_00001 not reported completed")
	}

	// other buckets are unaffected
	done, err = led.CompletedClusters(ctx, "201-400")
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 0 {
		t.Errorf("bucket leak: %v", done)
	}
}

func TestCompletedSurvivesNewRun(t *testing.T) {
	led, path := openTestLedger(t)
	ctx := context.Background()

	if _, err := led.BeginRun(ctx); err != nil {
		t.Fatal(err)
	}
	if err := led.SetJobStatus(ctx, "all", "cl_00001", JobCompleted, nil); err != nil {
		t.Fatal(err)
	}
	if err := led.FinishRun(ctx, "completed"); err != nil {
		t.Fatal(err)
	}
	led.Close()

	led2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer led2.Close()
	if _, err := led2.BeginRun(ctx); err != nil {
		t.Fatal(err)
	}

	done, err := led2.CompletedClusters(ctx, "all")
	if err != nil {
		t.Fatal(err)
	}
	if !done["cl_00001"] {
		t.Error("completed cluster from previous run not visible")
	}
}

func TestFailedJobs(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	if _, err := led.BeginRun(ctx); err != nil {
		t.Fatal(err)
	}

	if err := led.SetJobStatus(ctx, "all", "cl_00001", JobFailed, errors.New("muscle crashed")); err != nil {
		t.Fatal(err)
	}
	if err := led.SetJobStatus(ctx, "all", "cl_00002", JobCompleted, nil); err != nil {
		t.Fatal(err)
	}

	n, err := led.FailedJobs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("failed jobs = %d, want 1", n)
	}
}

func TestEventSink(t *testing.T) {
	led, _ := openTestLedger(t)
	ctx := context.Background()

	if _, err := led.BeginRun(ctx); err != nil {
		t.Fatal(err)
	}

	var sink_errs []error
	sink := led.EventSink("all", func(err error) { sink_errs = append(sink_errs, err) })

	sink.Classified(cluster.Assignment{SequenceID: "s1", ClusterID: "cl_00001", Founded: true, Score: 1.0})
	sink.Classified(cluster.Assignment{SequenceID: "s2", ClusterID: "cl_00001", Founded: false, Score: 0.93})

	if len(sink_errs) != 0 {
		t.Fatalf("sink errors: %v", sink_errs)
	}

	var n int
	err := led.db.QueryRow(
		`SELECT COUNT(*) FROM classify_events WHERE run_id = ? AND bucket = ?`,
		led.RunID(), "all").Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
}
