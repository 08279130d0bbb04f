package domain

import "errors"

// Domain errors.
var (
	// ErrMissingURL is returned when a request carries no URL.
	ErrMissingURL = errors.New("URL is required")

	// ErrUnsupportedURL is returned when a URL matches no known platform.
	ErrUnsupportedURL = errors.New("URL does not match a supported platform")

	// ErrWrongPlatform is returned when a URL does not match the platform
	// the caller asserted.
	ErrWrongPlatform = errors.New("URL does not belong to the selected platform")

	// ErrEngineUnavailable is returned when the extraction engine binary
	// is missing or not executable.
	ErrEngineUnavailable = errors.New("extraction engine unavailable")

	// ErrEngineTimeout is returned when an engine invocation exceeds its
	// wall-clock bound.
	ErrEngineTimeout = errors.New("extraction engine timed out")

	// ErrEngineRejected is returned when the engine exits nonzero, e.g.
	// for private or removed media.
	ErrEngineRejected = errors.New("extraction engine rejected the URL")

	// ErrMalformedOutput is returned when engine output does not parse.
	ErrMalformedOutput = errors.New("extraction engine output did not parse")

	// ErrInvalidRendition is returned when the requested quality/type pair
	// is not present in the current catalog.
	ErrInvalidRendition = errors.New("requested rendition is not available")

	// ErrArtifactMissing is returned when materialization reported success
	// but no matching output file was found.
	ErrArtifactMissing = errors.New("downloaded file not found")

	// ErrTransferInterrupted is returned when streaming an artifact to the
	// caller fails partway through.
	ErrTransferInterrupted = errors.New("transfer interrupted")
)

// JobError wraps an error with download-job context.
type JobError struct {
	JobID JobID
	Op    string
	Err   error
}

func (e *JobError) Error() string {
	if e.JobID != "" {
		return e.Op + " [" + e.JobID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError creates a new JobError.
func NewJobError(jobID JobID, op string, err error) *JobError {
	return &JobError{
		JobID: jobID,
		Op:    op,
		Err:   err,
	}
}
