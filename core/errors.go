package core

import "fmt"

// ConfigurationError reports invalid pipeline parameters. It is raised before
// any work starts, never mid-run.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// MissingPrerequisiteError reports a stage invoked before the stage that
// produces its input artifact has completed. Earlier stages are never
// regenerated silently from within a later one.
type MissingPrerequisiteError struct {
	LectureID string
	Artifact  string
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("lecture %s: missing prerequisite artifact %s", e.LectureID, e.Artifact)
}

// ExternalServiceError wraps a failure of an external collaborator
// (transcoder, transcriber, embedder or summarizer).
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// TaskNotFoundError reports a status query for an unknown task id.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}
