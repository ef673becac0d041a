package mock

import (
	"context"

	"github.com/fwojciec/crosspost"
)

var _ crosspost.JobService = (*JobService)(nil)

// JobService is a mock implementation of crosspost.JobService.
type JobService struct {
	CreateJobFn   func(ctx context.Context, job *crosspost.Job) error
	FindJobByIDFn func(ctx context.Context, id string) (*crosspost.Job, error)
	FindJobsFn    func(ctx context.Context, filter crosspost.JobFilter) ([]*crosspost.Job, error)
	UpdateJobFn   func(ctx context.Context, id string, upd crosspost.JobUpdate) (*crosspost.Job, error)
	DeleteJobFn   func(ctx context.Context, id string) error
}

func (s *JobService) CreateJob(ctx context.Context, job *crosspost.Job) error {
	return s.CreateJobFn(ctx, job)
}

func (s *JobService) FindJobByID(ctx context.Context, id string) (*crosspost.Job, error) {
	return s.FindJobByIDFn(ctx, id)
}

func (s *JobService) FindJobs(ctx context.Context, filter crosspost.JobFilter) ([]*crosspost.Job, error) {
	return s.FindJobsFn(ctx, filter)
}

func (s *JobService) UpdateJob(ctx context.Context, id string, upd crosspost.JobUpdate) (*crosspost.Job, error) {
	return s.UpdateJobFn(ctx, id, upd)
}

func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	return s.DeleteJobFn(ctx, id)
}

var _ crosspost.UploadRecorder = (*UploadRecorder)(nil)

// UploadRecorder is a mock implementation of crosspost.UploadRecorder.
type UploadRecorder struct {
	FindUploadsFn   func(ctx context.Context, jobID, platform string) (map[string]string, error)
	RecordUploadsFn func(ctx context.Context, jobID, platform string, mapping map[string]string) error
}

func (r *UploadRecorder) FindUploads(ctx context.Context, jobID, platform string) (map[string]string, error) {
	return r.FindUploadsFn(ctx, jobID, platform)
}

func (r *UploadRecorder) RecordUploads(ctx context.Context, jobID, platform string, mapping map[string]string) error {
	return r.RecordUploadsFn(ctx, jobID, platform, mapping)
}
