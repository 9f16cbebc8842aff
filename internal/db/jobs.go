package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/govjob-alerts/internal/types"
)

// -----------------------------------------------------------------------------
// Job Methods
// -----------------------------------------------------------------------------

const jobColumns = `id, title, organization, category, description, qualification, age_limit,
	total_vacancies, application_start, application_end, exam_date, application_fee,
	apply_url, location, salary, job_type, tags, notification_image_url, created_at`

func scanJob(row pgx.Row) (*types.Job, error) {
	var j types.Job
	err := row.Scan(
		&j.ID, &j.Title, &j.Organization, &j.Category, &j.Description, &j.Qualification, &j.AgeLimit,
		&j.TotalVacancies, &j.ApplicationStart, &j.ApplicationEnd, &j.ExamDate, &j.ApplicationFee,
		&j.ApplyURL, &j.Location, &j.Salary, &j.JobType, &j.Tags, &j.NotificationImageURL, &j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJobs returns all jobs, newest first.
func (db *DB) ListJobs(ctx context.Context) ([]types.Job, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []types.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// GetJob retrieves a job by id, or nil if it does not exist.
func (db *DB) GetJob(ctx context.Context, id string) (*types.Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// InsertJob stores a new job.
func (db *DB) InsertJob(ctx context.Context, j *types.Job) error {
	tags := j.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		j.ID, j.Title, j.Organization, j.Category, j.Description, j.Qualification, j.AgeLimit,
		j.TotalVacancies, j.ApplicationStart, j.ApplicationEnd, j.ExamDate, j.ApplicationFee,
		j.ApplyURL, j.Location, j.Salary, j.JobType, tags, j.NotificationImageURL, j.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// UpdateJob replaces the editable fields of a job. id and created_at are kept.
func (db *DB) UpdateJob(ctx context.Context, j *types.Job) error {
	tags := j.Tags
	if tags == nil {
		tags = []string{}
	}
	result, err := db.pool.Exec(ctx,
		`UPDATE jobs SET
		   title = $2, organization = $3, category = $4, description = $5, qualification = $6,
		   age_limit = $7, total_vacancies = $8, application_start = $9, application_end = $10,
		   exam_date = $11, application_fee = $12, apply_url = $13, location = $14, salary = $15,
		   job_type = $16, tags = $17, notification_image_url = $18
		 WHERE id = $1`,
		j.ID, j.Title, j.Organization, j.Category, j.Description, j.Qualification,
		j.AgeLimit, j.TotalVacancies, j.ApplicationStart, j.ApplicationEnd,
		j.ExamDate, j.ApplicationFee, j.ApplyURL, j.Location, j.Salary,
		j.JobType, tags, j.NotificationImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", j.ID)
	}
	return nil
}

// DeleteJob deletes a job.
func (db *DB) DeleteJob(ctx context.Context, id string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
