package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"faveswitch/internal/media"
)

// Stats job lifecycle: pending -> running -> completed | failed.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// StatsJob is one snapshot collection run. Snapshot holds the per-server
// counts as a JSON document so the schema does not chase the payload shape.
type StatsJob struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Progress   int             `json:"progress"`
	Message    string          `json:"message"`
	StartedAt  string          `json:"started_at"`
	FinishedAt *string         `json:"finished_at,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot"`
}

func (s *Store) CreateStatsJob(id string) (StatsJob, error) {
	job := StatsJob{ID: id, Status: JobPending, StartedAt: now(), Snapshot: json.RawMessage("{}")}
	_, err := execWithRetry(s.db,
		`INSERT INTO stats_jobs (id, status, progress, message, started_at, snapshot) VALUES (?, ?, 0, '', ?, '{}')`,
		job.ID, job.Status, job.StartedAt)
	if err != nil {
		return StatsJob{}, err
	}
	return job, nil
}

func (s *Store) UpdateStatsJob(id, status string, progress int, message string) error {
	_, err := execWithRetry(s.db,
		`UPDATE stats_jobs SET status = ?, progress = ?, message = ? WHERE id = ?`,
		status, progress, message, id)
	return err
}

// FinishStatsJob records the terminal state and the collected snapshot.
func (s *Store) FinishStatsJob(id, status, message string, snapshot any) error {
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	ts := now()
	_, err = execWithRetry(s.db,
		`UPDATE stats_jobs SET status = ?, progress = 100, message = ?, finished_at = ?, snapshot = ? WHERE id = ?`,
		status, message, ts, string(encoded), id)
	return err
}

func scanStatsJob(row interface{ Scan(...any) error }) (StatsJob, error) {
	var job StatsJob
	var snapshot string
	err := row.Scan(&job.ID, &job.Status, &job.Progress, &job.Message, &job.StartedAt, &job.FinishedAt, &snapshot)
	if err != nil {
		return StatsJob{}, err
	}
	job.Snapshot = json.RawMessage(snapshot)
	return job, nil
}

const statsJobColumns = `id, status, progress, message, started_at, finished_at, snapshot`

func (s *Store) GetStatsJob(id string) (StatsJob, error) {
	row := s.db.QueryRow(`SELECT `+statsJobColumns+` FROM stats_jobs WHERE id = ?`, id)
	job, err := scanStatsJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StatsJob{}, media.NotFound("stats job " + id)
	}
	return job, err
}

// LatestStatsJob returns the most recent job, or NotFound when none ran yet.
func (s *Store) LatestStatsJob() (StatsJob, error) {
	row := s.db.QueryRow(`SELECT ` + statsJobColumns + ` FROM stats_jobs ORDER BY started_at DESC, id DESC LIMIT 1`)
	job, err := scanStatsJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StatsJob{}, media.NotFound("stats job")
	}
	return job, err
}

func (s *Store) ListStatsJobs(limit int) ([]StatsJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+statsJobColumns+` FROM stats_jobs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StatsJob{}
	for rows.Next() {
		job, err := scanStatsJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}
