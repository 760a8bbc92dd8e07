// Run ledger on sqlite: which clusters finished, which failed, and the
// classification event stream. Restart logic reads this to skip work
// that is already done. The sqlite driver is registered by the caller
// (main blank-imports modernc.org/sqlite).

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/olsonanl/seed-profiles/pkg/cluster"
)

// JobStatus is the lifecycle of one cluster job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cluster_jobs (
	run_id     TEXT NOT NULL,
	bucket     TEXT NOT NULL,
	cluster_id TEXT NOT NULL,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL,
	PRIMARY KEY (run_id, bucket, cluster_id)
);
CREATE TABLE IF NOT EXISTS classify_events (
	run_id     TEXT NOT NULL,
	bucket     TEXT NOT NULL,
	seq_id     TEXT NOT NULL,
	cluster_id TEXT NOT NULL,
	founded    INTEGER NOT NULL,
	score      REAL NOT NULL
);
`

type Ledger struct {
	db    *sql.DB
	runID string
}

// Open connects to the ledger database and applies the schema.
func Open(path string) (*Ledger, error) {

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// RunID returns the id of the run opened by BeginRun.
func (l *Ledger) RunID() string {
	return l.runID
}

// BeginRun registers a new run and returns its id.
func (l *Ledger) BeginRun(ctx context.Context) (string, error) {

	run_id := "run-" + uuid.New().String()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, status) VALUES (?, ?, ?)`,
		run_id, now(), "running")
	if err != nil {
		return "", err
	}

	l.runID = run_id
	return run_id, nil
}

// FinishRun closes out the current run.
func (l *Ledger) FinishRun(ctx context.Context, status string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE run_id = ?`,
		now(), status, l.runID)
	return err
}

// SetJobStatus upserts a cluster job's state.
func (l *Ledger) SetJobStatus(ctx context.Context, bucket, clusterID string, status JobStatus, jobErr error) error {

	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO cluster_jobs (run_id, bucket, cluster_id, status, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, bucket, cluster_id)
		DO UPDATE SET status = excluded.status, error = excluded.error, updated_at = excluded.updated_at`,
		l.runID, bucket, clusterID, string(status), msg, now())
	return err
}

// CompletedClusters lists cluster ids recorded as completed in any
// previous run. Paired with a non-empty output check, it drives the
// idempotent restart skip.
func (l *Ledger) CompletedClusters(ctx context.Context, bucket string) (map[string]bool, error) {

	rows, err := l.db.QueryContext(ctx,
		`SELECT DISTINCT cluster_id FROM cluster_jobs WHERE bucket = ? AND status = ?`,
		bucket, string(JobCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = true
	}

	return done, rows.Err()
}

// FailedJobs counts failures recorded for the current run.
func (l *Ledger) FailedJobs(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cluster_jobs WHERE run_id = ? AND status = ?`,
		l.runID, string(JobFailed)).Scan(&n)
	return n, err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// eventSink records classification events for one bucket. Writes are
// fire-and-forget; a broken ledger must not abort a clustering pass.
type eventSink struct {
	ledger *Ledger
	bucket string
	onErr  func(error)
}

// EventSink adapts the ledger into the clustering engine's sink.
// onErr receives insert failures; nil ignores them.
func (l *Ledger) EventSink(bucket string, onErr func(error)) cluster.EventSink {
	return &eventSink{ledger: l, bucket: bucket, onErr: onErr}
}

func (s *eventSink) Classified(a cluster.Assignment) {
	founded := 0
	if a.Founded {
		founded = 1
	}
	_, err := s.ledger.db.Exec(
		`INSERT INTO classify_events (run_id, bucket, seq_id, cluster_id, founded, score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ledger.runID, s.bucket, a.SequenceID, a.ClusterID, founded, a.Score)
	if err != nil && s.onErr != nil {
		s.onErr(err)
	}
}
