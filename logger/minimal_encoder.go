package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Everforest Dark palette
const (
	colorReset    = "\x1b[0m"
	colorBold     = "\x1b[1m"
	colorFg       = "\x1b[38;5;223m"
	colorTime     = "\x1b[38;5;107m"
	colorGreen    = "\x1b[38;5;108m"
	colorDeep     = "\x1b[38;5;65m"
	colorAqua     = "\x1b[38;5;109m"
	colorOrange   = "\x1b[38;5;208m"
	colorYellow   = "\x1b[38;5;179m"
	colorRed      = "\x1b[38;5;167m"
	colorRedBg    = "\x1b[48;5;52m"
	colorYellowBg = "\x1b[48;5;58m"
)

var bufferPool = buffer.NewPool()

// minimalEncoder implements a calm, compact console encoder
// Format: "13:04:35  w.engine  Resource uploaded  #3 a.xml  resource_id=r-1"
type minimalEncoder struct {
	*zapcore.MapObjectEncoder // Accumulates fields added through With()
	color                     bool
}

func newMinimalEncoder(color bool) *minimalEncoder {
	return &minimalEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		color:            color,
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := newMinimalEncoder(enc.color)
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (enc *minimalEncoder) paint(color, s string) string {
	if !enc.color || s == "" {
		return s
	}
	return color + s + colorReset
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := bufferPool.Get()

	final.AppendString(enc.paint(colorTime, ent.Time.Format("15:04:05")))

	// Level: only show for WARN/ERROR with bold + background
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(enc.levelString(ent.Level))
	}

	// Component name (abbreviated) for visual grouping
	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(enc.paint(componentColor(ent.LoggerName), abbreviateName(ent.LoggerName)))
	}

	final.AppendString("  ")
	final.AppendString(enc.paint(colorFg, ent.Message))

	// Context fields first, sorted for stable output, then call-site fields in order
	var pairs []fieldPair
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, fieldPair{k, enc.Fields[k]})
	}
	for _, f := range fields {
		m := zapcore.NewMapObjectEncoder()
		f.AddTo(m)
		for k, v := range m.Fields {
			pairs = append(pairs, fieldPair{k, v})
		}
	}
	if rendered := enc.renderFields(pairs); rendered != "" {
		final.AppendString("  ")
		final.AppendString(rendered)
	}

	final.AppendString("\n")
	return final, nil
}

type fieldPair struct {
	key   string
	value interface{}
}

// renderFields prints every field. The work item (seq, file) is rendered as
// "#3 a.xml", everything else as key=value.
func (enc *minimalEncoder) renderFields(pairs []fieldPair) string {
	var item, rest []string
	var seq, file string
	for _, p := range pairs {
		switch p.key {
		case FieldSeq:
			seq = fmt.Sprintf("%v", p.value)
		case FieldFile:
			file = fmt.Sprintf("%v", p.value)
		case FieldDurationMS:
			rest = append(rest, enc.paint(colorGreen, fmt.Sprintf("%vms", p.value)))
		case FieldCategory, FieldError:
			rest = append(rest, p.key+"="+enc.paint(colorRed, fmt.Sprintf("%v", p.value)))
		default:
			rest = append(rest, p.key+"="+fmt.Sprintf("%v", p.value))
		}
	}
	if seq != "" {
		item = append(item, enc.paint(colorAqua, "#"+seq))
	}
	if file != "" {
		item = append(item, enc.paint(colorAqua, file))
	}
	return strings.Join(append(item, rest...), " ")
}

// levelString returns bold + colored + background for WARN/ERROR
func (enc *minimalEncoder) levelString(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return enc.paint(colorDeep, "DEBUG")
	case zapcore.WarnLevel:
		if !enc.color {
			return "WARN"
		}
		return colorBold + colorYellowBg + colorYellow + "WARN" + colorReset
	default:
		if !enc.color {
			return level.CapitalString()
		}
		return colorBold + colorRedBg + colorRed + level.CapitalString() + colorReset
	}
}

// componentColor rotates between green and orange so a component keeps its color
func componentColor(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	switch hash % 3 {
	case 0:
		return colorGreen
	case 1:
		return colorDeep
	default:
		return colorOrange
	}
}

// abbreviateName shortens component names: workflow.engine -> w.engine
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}
