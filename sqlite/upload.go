package sqlite

import (
	"context"
	"time"

	"github.com/fwojciec/crosspost"
)

// Compile-time interface verification.
var _ crosspost.UploadRecorder = (*UploadRecorder)(nil)

// UploadRecorder implements crosspost.UploadRecorder using SQLite.
type UploadRecorder struct {
	db *DB
}

// NewUploadRecorder creates a new UploadRecorder.
func NewUploadRecorder(db *DB) *UploadRecorder {
	return &UploadRecorder{db: db}
}

// FindUploads returns original URL -> hosted URL for a job and platform.
// A job without records returns an empty map.
func (r *UploadRecorder) FindUploads(ctx context.Context, jobID, platform string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT original_url, hosted_url
		FROM uploads
		WHERE job_id = ? AND platform = ?
	`, jobID, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mapping := make(map[string]string)
	for rows.Next() {
		var original, hosted string
		if err := rows.Scan(&original, &hosted); err != nil {
			return nil, err
		}
		mapping[original] = hosted
	}

	return mapping, rows.Err()
}

// RecordUploads stores original URL -> hosted URL pairs in one transaction.
// A pair already recorded is replaced.
func (r *UploadRecorder) RecordUploads(ctx context.Context, jobID, platform string, mapping map[string]string) error {
	if jobID == "" || platform == "" {
		return crosspost.Errorf(crosspost.EINVALID, "job ID and platform required")
	}
	if len(mapping) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for original, hosted := range mapping {
		if original == "" || hosted == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO uploads (job_id, platform, original_url, hosted_url, uploaded_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (job_id, platform, original_url)
			DO UPDATE SET hosted_url = excluded.hosted_url, uploaded_at = excluded.uploaded_at
		`, jobID, platform, original, hosted, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}
