package etl

import "fmt"

// ConnectionError reports an unreachable extractor or loader. It is fatal to
// a sync attempt and is not retried.
type ConnectionError struct {
	Component string // "extractor" or "loader"
	Err       error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s connection validation failed", e.Component)
	}
	return fmt.Sprintf("%s connection validation failed: %v", e.Component, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransformationError reports a single unmappable raw record. The pipeline
// isolates it to that record.
type TransformationError struct {
	RecordID string
	Err      error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("transform record %s: %v", e.RecordID, e.Err)
}

func (e *TransformationError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a registry lookup miss at pipeline-construction
// time. It names the missing identifier and is never silently defaulted.
type ConfigurationError struct {
	Kind       string // "extractor", "transformer", or "loader"
	Identifier string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no %s registered for %q", e.Kind, e.Identifier)
}
