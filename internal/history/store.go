// Package history keeps an audit trail of runs in SQLite. It is write-only
// from the engine's point of view: nothing is read back to resume a run.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seatsniper/seatsniper/internal/domain"
)

// RunningOutcome is stored for runs that have not finished
const RunningOutcome = "running"

// Store provides SQLite-backed run history
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a run row that has not finished yet
func (s *Store) StartRun(run domain.RunRecord) error {
	courses, err := json.Marshal(run.Courses)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO runs (id, started_at, outcome, interval_seconds, max_duration_seconds, courses)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, RunningOutcome, run.IntervalSeconds, run.MaxDurationSeconds, string(courses))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// AddResult appends one course outcome for one round
func (s *Store) AddResult(res domain.CourseResult) error {
	_, err := s.db.Exec(`
		INSERT INTO course_results (run_id, round, course_id, display_name, kind, position, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.RunID,
		res.Round,
		string(res.CourseID),
		res.DisplayName,
		res.Outcome.Kind.String(),
		res.Outcome.Position,
		res.Outcome.Reason,
		res.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result for %s: %w", res.CourseID, err)
	}
	return nil
}

// FinishRun stores how and when a run ended
func (s *Store) FinishRun(id string, outcome domain.RunOutcome, rounds int, finishedAt time.Time) error {
	res, err := s.db.Exec(`UPDATE runs SET outcome = ?, reason = ?, rounds = ?, finished_at = ? WHERE id = ?`,
		string(outcome.Kind), outcome.Reason, rounds, finishedAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, outcome, reason, rounds, interval_seconds, max_duration_seconds, courses`

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*domain.RunRecord, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(limit int) ([]*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunResults returns the latest recorded outcome of every course in a run,
// in the order the courses were first recorded
func (s *Store) RunResults(runID string) ([]domain.CourseResult, error) {
	rows, err := s.db.Query(`
		SELECT cr.run_id, cr.round, cr.course_id, cr.display_name, cr.kind, cr.position, cr.reason, cr.recorded_at
		FROM course_results cr
		WHERE cr.run_id = ?
		  AND cr.id = (SELECT MAX(id) FROM course_results WHERE run_id = cr.run_id AND course_id = cr.course_id)
		ORDER BY (SELECT MIN(id) FROM course_results WHERE run_id = cr.run_id AND course_id = cr.course_id)
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.CourseResult
	for rows.Next() {
		var res domain.CourseResult
		var courseID, kind string
		if err := rows.Scan(&res.RunID, &res.Round, &courseID, &res.DisplayName, &kind, &res.Outcome.Position, &res.Outcome.Reason, &res.RecordedAt); err != nil {
			return nil, err
		}
		res.CourseID = domain.CourseID(courseID)
		k, ok := domain.ParseOutcomeKind(kind)
		if !ok {
			return nil, fmt.Errorf("unknown outcome kind %q for %s", kind, courseID)
		}
		res.Outcome.Kind = k
		results = append(results, res)
	}
	return results, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*domain.RunRecord, error) {
	var run domain.RunRecord
	var finished sql.NullTime
	var outcome, courses string

	err := row.Scan(&run.ID, &run.StartedAt, &finished, &outcome, &run.Outcome.Reason, &run.Rounds,
		&run.IntervalSeconds, &run.MaxDurationSeconds, &courses)
	if err != nil {
		return nil, err
	}

	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	if outcome != RunningOutcome {
		run.Outcome.Kind = domain.RunOutcomeKind(outcome)
	}
	if courses != "" {
		if err := json.Unmarshal([]byte(courses), &run.Courses); err != nil {
			return nil, err
		}
	}
	return &run, nil
}
