package pulse

// ProgressEmitter defines the domain-agnostic interface for emitting progress updates
// during long-running operations. Domain packages extend it with their own
// convenience methods (see pulse/batch).
type ProgressEmitter interface {
	// EmitStage announces the start of a processing stage
	EmitStage(stage string, message string)

	// EmitProgress announces batch progress with count and optional metadata
	EmitProgress(count int, metadata map[string]interface{})

	// EmitComplete announces completion with summary
	EmitComplete(summary map[string]interface{})

	// EmitError announces an error during processing
	EmitError(stage string, err error)

	// EmitInfo emits general informational message
	EmitInfo(message string)
}
