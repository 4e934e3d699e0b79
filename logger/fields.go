package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across tpu.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID    = "run_id"
	FieldSeq      = "seq"
	FieldFile     = "file"
	FieldWorker   = "worker"
	FieldResource = "resource_id"

	// Engine entities
	FieldDataModel  = "data_model_id"
	FieldProject    = "project_id"
	FieldOutputDM   = "output_data_model_id"
	FieldConfigID   = "configuration_id"
	FieldOperation  = "operation"
	FieldStatusCode = "status_code"
	FieldURL        = "url"

	// Timing
	FieldDurationMS = "duration_ms"

	// Outcome
	FieldOutcome  = "outcome"
	FieldCategory = "category"
	FieldError    = "error"

	// Counts
	FieldCount      = "count"
	FieldStatements = "statements"
	FieldRecords    = "records"

	// Output
	FieldPath   = "path"
	FieldFormat = "format"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey contextKey = "logger_run_id"
	seqKey   contextKey = "logger_seq"
	fileKey  contextKey = "logger_file"
)

// WithRunID adds a batch run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithItem adds the sequence number and file name of a work item to the context
func WithItem(ctx context.Context, seq int, file string) context.Context {
	ctx = context.WithValue(ctx, seqKey, seq)
	return context.WithValue(ctx, fileKey, file)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if seq, ok := ctx.Value(seqKey).(int); ok {
		fields = append(fields, FieldSeq, seq)
	}
	if file, ok := ctx.Value(fileKey).(string); ok && file != "" {
		fields = append(fields, FieldFile, file)
	}

	return fields
}

// FromContext returns base enriched with fields extracted from context.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	base = OrNop(base)
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
