package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Repository interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	MarkJobStarted(ctx context.Context, id string) (bool, error)
	CancelJobIfPending(ctx context.Context, id string) (bool, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error
	SetJobMedia(ctx context.Context, id string, durationSeconds, frameRate float64) error
	FinishJob(ctx context.Context, id, status, errorMsg string, succeeded, failed int, totalBytes int64) error

	AddSegmentResult(ctx context.Context, result *SegmentResult) error
	GetSegmentResults(ctx context.Context, jobID string) ([]*SegmentResult, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const jobColumns = `id, input_path, output_dir, output_prefix, timestamps, scale, status, progress,
	error, succeeded, failed, total_bytes, duration_seconds, frame_rate,
	created_at, updated_at, started_at, finished_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	timestamps, err := json.Marshal(j.Timestamps)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, input_path, output_dir, output_prefix, timestamps, scale, status, progress, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.InputPath, j.OutputDir, j.OutputPrefix, string(timestamps), j.Scale,
		j.Status, j.Progress, j.Error,
		j.CreatedAt.UTC().Format(time.RFC3339), j.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return r.scanJob(row)
}

func (r *SQLiteRepository) scanJob(row *sql.Row) (*Job, error) {
	var j Job
	var timestamps, createdAt, updatedAt string
	var startedAt, finishedAt sql.NullString

	err := row.Scan(&j.ID, &j.InputPath, &j.OutputDir, &j.OutputPrefix, &timestamps, &j.Scale,
		&j.Status, &j.Progress, &j.Error, &j.Succeeded, &j.Failed, &j.TotalBytes,
		&j.DurationSeconds, &j.FrameRate, &createdAt, &updatedAt, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(timestamps), &j.Timestamps)
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	j.StartedAt = timePtr(startedAt)
	j.FinishedAt = timePtr(finishedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE status = 'pending' ORDER BY created_at ASC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

func (r *SQLiteRepository) scanJobs(rows *sql.Rows) ([]*Job, error) {
	var list []*Job
	for rows.Next() {
		var j Job
		var timestamps, createdAt, updatedAt string
		var startedAt, finishedAt sql.NullString

		if err := rows.Scan(&j.ID, &j.InputPath, &j.OutputDir, &j.OutputPrefix, &timestamps, &j.Scale,
			&j.Status, &j.Progress, &j.Error, &j.Succeeded, &j.Failed, &j.TotalBytes,
			&j.DurationSeconds, &j.FrameRate, &createdAt, &updatedAt, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(timestamps), &j.Timestamps)
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		j.StartedAt = timePtr(startedAt)
		j.FinishedAt = timePtr(finishedAt)
		list = append(list, &j)
	}
	return list, rows.Err()
}

// MarkJobStarted flips a pending job to running. It reports false when the
// job was canceled or picked up in the meantime.
func (r *SQLiteRepository) MarkJobStarted(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, started_at = ?, updated_at = ? WHERE id = ? AND status = ?
	`, StatusRunning, now, now, id, StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelJobIfPending cancels a job that has not started yet. Running jobs
// are canceled through the runner, which owns the in-flight context.
func (r *SQLiteRepository) CancelJobIfPending(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, StatusCanceled, time.Now().UTC().Format(time.RFC3339), id, StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, errorMsg, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?
	`, progress, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) SetJobMedia(ctx context.Context, id string, durationSeconds, frameRate float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET duration_seconds = ?, frame_rate = ?, updated_at = ? WHERE id = ?
	`, durationSeconds, frameRate, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) FinishJob(ctx context.Context, id, status, errorMsg string, succeeded, failed int, totalBytes int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, succeeded = ?, failed = ?, total_bytes = ?,
			finished_at = ?, updated_at = ? WHERE id = ?
	`, status, errorMsg, succeeded, failed, totalBytes, now, now, id)
	return err
}

func (r *SQLiteRepository) AddSegmentResult(ctx context.Context, sr *SegmentResult) error {
	var end sql.NullFloat64
	if sr.EndSeconds != nil {
		end = sql.NullFloat64{Float64: *sr.EndSeconds, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO segment_results (job_id, seg_index, start_seconds, end_seconds, output_path, exit_code, stderr_tail, output_bytes, invoke_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sr.JobID, sr.Index, sr.StartSeconds, end, sr.OutputPath, sr.ExitCode,
		sr.StderrTail, sr.OutputBytes, sr.InvokeMs, sr.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetSegmentResults(ctx context.Context, jobID string) ([]*SegmentResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT job_id, seg_index, start_seconds, end_seconds, output_path, exit_code, stderr_tail, output_bytes, invoke_ms, created_at
		FROM segment_results WHERE job_id = ? ORDER BY seg_index ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*SegmentResult
	for rows.Next() {
		var sr SegmentResult
		var end sql.NullFloat64
		var createdAt string
		if err := rows.Scan(&sr.JobID, &sr.Index, &sr.StartSeconds, &end, &sr.OutputPath,
			&sr.ExitCode, &sr.StderrTail, &sr.OutputBytes, &sr.InvokeMs, &createdAt); err != nil {
			return nil, err
		}
		if end.Valid {
			v := end.Float64
			sr.EndSeconds = &v
		}
		sr.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		results = append(results, &sr)
	}
	return results, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func timePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
