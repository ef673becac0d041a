package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/crosspost"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ crosspost.JobService = (*JobService)(nil)

// jobColumns is the column list shared by every job query.
const jobColumns = "id, title, body, assets, tags, categories, summary, cover, content_hash, created_at, updated_at"

// JobService implements crosspost.JobService using SQLite.
type JobService struct {
	db *DB
}

// NewJobService creates a new JobService.
func NewJobService(db *DB) *JobService {
	return &JobService{db: db}
}

// hashContent computes xxHash of content and returns hex string.
func hashContent(content string) string {
	var b [8]byte
	h := xxhash.Sum64String(content)
	for i := range b {
		b[i] = byte(h >> (56 - 8*i))
	}
	return hex.EncodeToString(b[:])
}

// CreateJob creates a new job. An empty ID is replaced with a generated one;
// an ID already in use returns ECONFLICT.
func (s *JobService) CreateJob(ctx context.Context, job *crosspost.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	if job.ID == "" {
		job.ID = uuid.New().String()
	} else if _, err := s.FindJobByID(ctx, job.ID); err == nil {
		return crosspost.Errorf(crosspost.ECONFLICT, "job %q already exists", job.ID)
	} else if crosspost.ErrorCode(err) != crosspost.ENOTFOUND {
		return err
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.ContentHash = hashContent(job.Body)

	assets, tags, categories, err := encodeLists(job)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.Title, job.Body, assets, tags, categories, job.Summary, job.Cover, job.ContentHash,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt))

	return err
}

// FindJobByID retrieves a job by ID.
func (s *JobService) FindJobByID(ctx context.Context, id string) (*crosspost.Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, crosspost.Errorf(crosspost.ENOTFOUND, "job not found")
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// FindJobs retrieves jobs matching the filter, newest first.
func (s *JobService) FindJobs(ctx context.Context, filter crosspost.JobFilter) ([]*crosspost.Job, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + jobColumns + " FROM jobs WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Title != nil {
		query.WriteString(" AND title = ?")
		args = append(args, *filter.Title)
	}
	if filter.ContentHash != nil {
		query.WriteString(" AND content_hash = ?")
		args = append(args, *filter.ContentHash)
	}

	query.WriteString(" ORDER BY created_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*crosspost.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// UpdateJob updates an existing job.
func (s *JobService) UpdateJob(ctx context.Context, id string, upd crosspost.JobUpdate) (*crosspost.Job, error) {
	job, err := s.FindJobByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		job.Title = *upd.Title
	}
	if upd.Body != nil {
		job.Body = *upd.Body
	}
	if upd.Summary != nil {
		job.Summary = *upd.Summary
	}
	if upd.Cover != nil {
		job.Cover = *upd.Cover
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	job.ContentHash = hashContent(job.Body)
	job.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE jobs
		SET title = ?, body = ?, summary = ?, cover = ?, content_hash = ?, updated_at = ?
		WHERE id = ?
	`, job.Title, job.Body, job.Summary, job.Cover, job.ContentHash,
		formatTime(job.UpdatedAt), id)

	if err != nil {
		return nil, err
	}

	return job, nil
}

// DeleteJob permanently removes a job and its upload records.
func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return crosspost.Errorf(crosspost.ENOTFOUND, "job not found")
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM uploads WHERE job_id = ?", id); err != nil {
		return err
	}

	return tx.Commit()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*crosspost.Job, error) {
	var job crosspost.Job
	var assets, tags, categories, createdAt, updatedAt string

	if err := row.Scan(&job.ID, &job.Title, &job.Body, &assets, &tags, &categories,
		&job.Summary, &job.Cover, &job.ContentHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if job.Assets, err = decodeList[crosspost.AssetInput]("assets", assets); err != nil {
		return nil, err
	}
	if job.Tags, err = decodeList[string]("tags", tags); err != nil {
		return nil, err
	}
	if job.Categories, err = decodeList[string]("categories", categories); err != nil {
		return nil, err
	}
	if job.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}

	return &job, nil
}

// encodeLists returns the JSON list columns of job.
func encodeLists(job *crosspost.Job) (assets, tags, categories string, err error) {
	if assets, err = encodeList("assets", job.Assets); err != nil {
		return "", "", "", err
	}
	if tags, err = encodeList("tags", job.Tags); err != nil {
		return "", "", "", err
	}
	if categories, err = encodeList("categories", job.Categories); err != nil {
		return "", "", "", err
	}
	return assets, tags, categories, nil
}
