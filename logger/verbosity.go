package logger

import "go.uber.org/zap/zapcore"

// CLI verbosity, the count of repeated -v flags
const (
	VerbosityUser  = iota // batch summary, warnings and errors
	VerbosityInfo         // -v: per-file outcomes, engine calls
	VerbosityDebug        // -vv: request timing, config details
	VerbosityTrace        // -vvv: projector decisions for every value
)

var verbosityLevels = [...]struct {
	level zapcore.Level
	name  string
}{
	VerbosityUser:  {zapcore.WarnLevel, "user"},
	VerbosityInfo:  {zapcore.InfoLevel, "info"},
	VerbosityDebug: {zapcore.DebugLevel, "debug"},
	VerbosityTrace: {zapcore.DebugLevel, "trace"},
}

func clampVerbosity(verbosity int) int {
	return min(max(verbosity, VerbosityUser), VerbosityTrace)
}

// VerbosityToLevel maps a -v count to the lowest zap level it shows.
// Counts above -vvv behave like -vvv.
func VerbosityToLevel(verbosity int) zapcore.Level {
	return verbosityLevels[clampVerbosity(verbosity)].level
}

// VerbosityName names a -v count for log output
func VerbosityName(verbosity int) string {
	return verbosityLevels[clampVerbosity(verbosity)].name
}
