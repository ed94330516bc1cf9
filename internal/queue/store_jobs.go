package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, upload_id, clinic_id, patient_id, report_type, report_id,
    source_path, filename, file_size, status, error_message, result_json,
    created_at, updated_at`

// NewJob enqueues a workflow job for an ingested file and returns the stored row.
func (s *Store) NewJob(ctx context.Context, job *Job) (*Job, error) {
	if job == nil {
		return nil, errors.New("job is nil")
	}
	if strings.TrimSpace(job.SourcePath) == "" {
		return nil, errors.New("source path is required")
	}

	id := strings.TrimSpace(job.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.execRetry(
		ctx,
		`INSERT INTO jobs (
            id, upload_id, clinic_id, patient_id, report_type, report_id,
            source_path, filename, file_size, status, error_message, result_json,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		job.UploadID,
		nullableString(job.ClinicID),
		nullableString(job.PatientID),
		nullableString(job.ReportType),
		nullableString(job.ReportID),
		job.SourcePath,
		job.Filename,
		job.FileSize,
		StatusQueued,
		nil,
		nil,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by workflow identifier. A missing job returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()

	_, err := s.execRetry(
		ctx,
		`UPDATE jobs SET
            upload_id = ?, clinic_id = ?, patient_id = ?, report_type = ?, report_id = ?,
            source_path = ?, filename = ?, file_size = ?, status = ?,
            error_message = ?, result_json = ?, updated_at = ?
        WHERE id = ?`,
		job.UploadID,
		nullableString(job.ClinicID),
		nullableString(job.PatientID),
		nullableString(job.ReportType),
		nullableString(job.ReportID),
		job.SourcePath,
		job.Filename,
		job.FileSize,
		job.Status,
		nullableString(job.ErrorMessage),
		nullableString(job.ResultJSON),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// ClaimNext atomically claims the oldest queued job and transitions it to
// processing. Returns nil, nil when the queue is empty.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = reqContext(ctx)

	var claimedID string
	err := busyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			`SELECT id FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`, StatusQueued)
		if err := row.Scan(&claimedID); err != nil {
			return err
		}

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			StatusProcessing, timestamp, claimedID, StatusQueued); err != nil {
			return err
		}
		return tx.Commit()
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return s.GetByID(ctx, claimedID)
}

// List returns jobs, optionally filtered by status, newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(reqContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ResetStuckProcessing fails jobs left in processing by a previous daemon run.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed, DaemonStopReason, timestamp, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("reset stuck processing: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes a job by id and reports whether a row was removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClearCompleted removes all completed jobs and returns the count.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job          Job
		clinicID     sql.NullString
		patientID    sql.NullString
		reportType   sql.NullString
		reportID     sql.NullString
		errorMessage sql.NullString
		resultJSON   sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(
		&job.ID,
		&job.UploadID,
		&clinicID,
		&patientID,
		&reportType,
		&reportID,
		&job.SourcePath,
		&job.Filename,
		&job.FileSize,
		&job.Status,
		&errorMessage,
		&resultJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.ClinicID = clinicID.String
	job.PatientID = patientID.String
	job.ReportType = reportType.String
	job.ReportID = reportID.String
	job.ErrorMessage = errorMessage.String
	job.ResultJSON = resultJSON.String
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		job.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		job.UpdatedAt = ts
	}
	return &job, nil
}
