package proof

// Level is the four-valued ordinal scale shared by thoroughness,
// understanding, trust, and distrust.
//
// LevelNone is not "neutral": on trust/distrust it is an explicit tombstone
// that erases the issuer's prior non-none assertion for the same target.
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelMedium
	LevelHigh
)

var levelTokens = map[Level]string{
	LevelNone:   "none",
	LevelLow:    "low",
	LevelMedium: "medium",
	LevelHigh:   "high",
}

func (l Level) String() string {
	s, ok := levelTokens[l]
	if !ok {
		return "invalid"
	}
	return s
}

// Valid reports whether l is one of the four defined ordinals.
func (l Level) Valid() bool {
	_, ok := levelTokens[l]
	return ok
}

// ParseLevel parses one of the fixed spellings none|low|medium|high.
// Any other spelling (including case variants) is rejected.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "none":
		return LevelNone, nil
	case "low":
		return LevelLow, nil
	case "medium":
		return LevelMedium, nil
	case "high":
		return LevelHigh, nil
	default:
		return LevelNone, newError(KindEncoding, "CRP-ENC-010", "invalid ordinal level "+quote(s))
	}
}

func quote(s string) string {
	return "\"" + s + "\""
}
