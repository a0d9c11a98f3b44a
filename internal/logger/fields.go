package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the pipeline call chain.
const (
	// FieldRunID is the curation run ID (UUID)
	FieldRunID = "run_id"

	// FieldComponent is the component/engine name
	FieldComponent = "component"

	// FieldSource is the source page identifier
	FieldSource = "source"

	// FieldStep is the pipeline step number
	FieldStep = "step"
)

// Standard metric fields used for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"
)
