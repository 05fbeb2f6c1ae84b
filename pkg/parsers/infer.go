package parsers

import (
	"strconv"
	"strings"
	"time"
)

// tokenKind classifies a single non-null text token.
type tokenKind int

const (
	kindInt tokenKind = iota
	kindFloat
	kindBool
	kindString
)

func classifyToken(s string) tokenKind {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return kindInt
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return kindFloat
	}
	if isBoolToken(s) {
		return kindBool
	}
	return kindString
}

func isBoolToken(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}

// columnKinds accumulates the token kinds seen in one column's sample.
type columnKinds struct {
	sawInt    bool
	sawFloat  bool
	sawBool   bool
	sawString bool
	sawValue  bool
}

func (k *columnKinds) observe(s string) {
	k.sawValue = true
	switch classifyToken(s) {
	case kindInt:
		k.sawInt = true
	case kindFloat:
		k.sawFloat = true
	case kindBool:
		k.sawBool = true
	default:
		k.sawString = true
	}
}

// resolve picks the column type with precedence string > float > int >
// bool. Mixing booleans with numbers has no sensible coercion, so it
// also falls back to string. An all-null sample resolves to string.
func (k *columnKinds) resolve() columnType {
	switch {
	case !k.sawValue || k.sawString:
		return colString
	case k.sawBool && (k.sawInt || k.sawFloat):
		return colString
	case k.sawFloat:
		return colFloat
	case k.sawInt:
		return colInt
	case k.sawBool:
		return colBool
	default:
		return colString
	}
}

type columnType int

const (
	colString columnType = iota
	colFloat
	colInt
	colBool
	colTimestamp
)

// dateLayouts are the string layouts recognized as timestamps during
// JSON inference. CSV never infers timestamps.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
