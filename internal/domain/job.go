package domain

import (
	"time"
)

// JobID is a unique identifier for a download job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobState represents the current state of a download job.
type JobState string

const (
	JobStateAccepted         JobState = "accepted"
	JobStateMaterializing    JobState = "materializing"
	JobStateReadyForTransfer JobState = "ready_for_transfer"
	JobStateTransferring     JobState = "transferring"
	JobStateCompleted        JobState = "completed"
	JobStateFailed           JobState = "failed"
)

// DownloadJob tracks one delivery request from acceptance through transfer.
// A job is owned by a single request; it is never shared between callers.
type DownloadJob struct {
	ID            JobID
	SourceURL     string
	Filename      string
	Kind          RenditionKind
	Quality       string
	OutputPath    string
	State         JobState
	FailureReason error
	Progress      int // 0-100 during transfer
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewDownloadJob creates a job in the accepted state.
func NewDownloadJob(id JobID, sourceURL, filename string, kind RenditionKind, quality string) *DownloadJob {
	now := time.Now()
	return &DownloadJob{
		ID:        id,
		SourceURL: sourceURL,
		Filename:  filename,
		Kind:      kind,
		Quality:   quality,
		State:     JobStateAccepted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkMaterializing transitions the job to the materializing state.
func (j *DownloadJob) MarkMaterializing(outputPath string) {
	j.OutputPath = outputPath
	j.State = JobStateMaterializing
	j.UpdatedAt = time.Now()
}

// MarkReady records the located artifact and transitions to ready_for_transfer.
func (j *DownloadJob) MarkReady(artifactPath string) {
	j.OutputPath = artifactPath
	j.State = JobStateReadyForTransfer
	j.UpdatedAt = time.Now()
}

// MarkTransferring transitions the job to the transferring state.
func (j *DownloadJob) MarkTransferring() {
	j.State = JobStateTransferring
	j.UpdatedAt = time.Now()
}

// MarkCompleted transitions the job to its terminal success state.
func (j *DownloadJob) MarkCompleted() {
	j.Progress = 100
	j.State = JobStateCompleted
	j.UpdatedAt = time.Now()
}

// MarkFailed transitions the job to its terminal failure state.
func (j *DownloadJob) MarkFailed(reason error) {
	j.FailureReason = reason
	j.State = JobStateFailed
	j.UpdatedAt = time.Now()
}

// Terminal returns true once the job reached completed or failed.
func (j *DownloadJob) Terminal() bool {
	return j.State == JobStateCompleted || j.State == JobStateFailed
}
