package logger

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

// TestMinimalEncoderNeverDiscardsFields ensures the console encoder never
// silently drops a field, whatever its type or name.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	encoder := newMinimalEncoder(true)

	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Now(),
		LoggerName: "test",
		Message:    "Testing field preservation",
	}

	testFields := []struct {
		field    zapcore.Field
		mustFind string
	}{
		{zap.String("resource_id", "r-1"), "resource_id=r-1"},
		{zap.String("project_id", "p-1"), "project_id=p-1"},
		{zap.Bool("persist", true), "persist=true"},
		{zap.Float64("ratio", 0.8), "ratio=0.8"},
		{zap.Strings("formats", []string{"xml", "ttl"}), "formats=[xml ttl]"},
		{zap.String("field.with.dots", "test2"), "field.with.dots=test2"},
		{zap.Int32("int32_field", 42), "int32_field=42"},
		{zap.Int64("int64_field", 9999999), "int64_field=9999999"},
		{zap.Bool("success", false), "success=false"},
		{zap.Error(nil), ""},
		{zap.String("error", "something went wrong"), "error=something went wrong"},
		{zap.Int("duration_ms", 12), "12ms"},
	}

	var allFields []zapcore.Field
	for _, tf := range testFields {
		allFields = append(allFields, tf.field)
	}

	buf, err := encoder.EncodeEntry(entry, allFields)
	require.NoError(t, err)

	cleanOutput := stripANSI(buf.String())
	for _, tf := range testFields {
		if tf.mustFind != "" {
			assert.Contains(t, cleanOutput, tf.mustFind, "field was silently discarded")
		}
	}
}

func TestMinimalEncoderWorkItem(t *testing.T) {
	encoder := newMinimalEncoder(false)

	entry := zapcore.Entry{
		Level:      zapcore.WarnLevel,
		Time:       time.Date(2024, 1, 2, 13, 4, 35, 0, time.UTC),
		LoggerName: "workflow.engine",
		Message:    "Resource uploaded",
	}

	buf, err := encoder.EncodeEntry(entry, []zapcore.Field{
		zap.String("resource_id", "r-1"),
		zap.Int("seq", 3),
		zap.String("file", "a.xml"),
	})
	require.NoError(t, err)

	assert.Equal(t, "13:04:35  WARN  w.engine  Resource uploaded  #3 a.xml resource_id=r-1\n", buf.String())
}

func TestMinimalEncoderKeepsContextFields(t *testing.T) {
	var sb strings.Builder
	log, err := New(Options{Verbosity: VerbosityInfo, Output: &sb, NoColor: true})
	require.NoError(t, err)

	log.Named("batch").With("run_id", "run-1").Infow("Batch started", "count", 2)

	out := sb.String()
	assert.Contains(t, out, "batch")
	assert.Contains(t, out, "run_id=run-1")
	assert.Contains(t, out, "count=2")
}

// TestUnknownFieldTypes tests that the encoder handles all possible field types
// without crashing or silently dropping them
func TestUnknownFieldTypes(t *testing.T) {
	encoder := newMinimalEncoder(true)

	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Now(),
		Message: "Testing unknown field types",
	}

	fields := []zapcore.Field{
		zap.Complex128("complex", complex(1.0, 2.0)),
		zap.Duration("duration", 5*time.Second),
		zap.Time("timestamp", time.Now()),
		zap.Uint64("uint64", 5000000000),
		zap.ByteString("bytes", []byte("hello world")),
		zap.Binary("binary", []byte{0x01, 0x02, 0x03}),
	}

	buf, err := encoder.EncodeEntry(entry, fields)
	require.NoError(t, err)

	cleanOutput := stripANSI(buf.String())
	for _, expected := range []string{"complex", "duration", "timestamp", "uint64", "bytes", "binary"} {
		assert.Contains(t, cleanOutput, expected+"=")
	}
}

func TestAbbreviateName(t *testing.T) {
	assert.Equal(t, "w.engine", abbreviateName("workflow.engine"))
	assert.Equal(t, "batch", abbreviateName("batch"))
	assert.Equal(t, "d.client.http", abbreviateName("dswarm.client.http"))
}
