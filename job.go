package crosspost

import (
	"context"
	"time"
)

// Job is one article prepared for publishing to any number of targets.
// Body is Markdown; Tree, when set, takes precedence over Body for rendering.
type Job struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Body       string       `json:"body"`
	Tree       *Root        `json:"-"`
	Assets     []AssetInput `json:"assets,omitempty"`
	Tags       []string     `json:"tags,omitempty"`
	Categories []string     `json:"categories,omitempty"`
	Summary    string       `json:"summary,omitempty"`
	Cover      string       `json:"cover,omitempty"`

	// ContentHash identifies the body text; it is set by the job store.
	ContentHash string `json:"contentHash,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate returns an error if the job contains invalid fields.
func (j *Job) Validate() error {
	if j.Title == "" {
		return Errorf(EINVALID, "job title required")
	}
	if j.Body == "" && j.Tree == nil {
		return Errorf(EINVALID, "job body required")
	}
	return nil
}

// JobService represents a service for managing jobs.
type JobService interface {
	// CreateJob creates a new job, assigning an ID if empty.
	CreateJob(ctx context.Context, job *Job) error

	// FindJobByID retrieves a job by ID.
	// Returns ENOTFOUND if job does not exist.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// FindJobs retrieves jobs matching the filter.
	FindJobs(ctx context.Context, filter JobFilter) ([]*Job, error)

	// UpdateJob updates an existing job.
	// Returns ENOTFOUND if job does not exist.
	UpdateJob(ctx context.Context, id string, upd JobUpdate) (*Job, error)

	// DeleteJob permanently removes a job and its upload records.
	// Returns ENOTFOUND if job does not exist.
	DeleteJob(ctx context.Context, id string) error
}

// JobFilter represents a filter for FindJobs.
type JobFilter struct {
	ID          *string `json:"id"`
	Title       *string `json:"title"`
	ContentHash *string `json:"contentHash"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// JobUpdate represents fields that can be updated on a job.
type JobUpdate struct {
	Title   *string `json:"title"`
	Body    *string `json:"body"`
	Summary *string `json:"summary"`
	Cover   *string `json:"cover"`
}

// UploadRecorder remembers which images have already been re-hosted on
// which platform so later runs skip them.
type UploadRecorder interface {
	// FindUploads returns original URL -> hosted URL for a job and platform.
	FindUploads(ctx context.Context, jobID, platform string) (map[string]string, error)

	// RecordUploads stores original URL -> hosted URL pairs.
	RecordUploads(ctx context.Context, jobID, platform string, mapping map[string]string) error
}
