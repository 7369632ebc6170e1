package ports

// LogLevel is the minimum severity a logger writes.
type LogLevel int

const (
	// LevelDebug covers per-component detail such as decode loop transitions
	// and seeks.
	LevelDebug LogLevel = iota
	// LevelInfo covers session progress.
	LevelInfo
	// LevelWarn covers problems the session continues past.
	LevelWarn
	// LevelError covers problems that end decoding or the session.
	LevelError
	// LevelQuiet writes nothing.
	LevelQuiet
)

var levelNames = [...]string{"debug", "info", "warn", "error", "quiet"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLogLevel maps a level name to a LogLevel. ok is false for unknown
// names, in which case LevelInfo is returned.
func ParseLogLevel(s string) (level LogLevel, ok bool) {
	for i, name := range levelNames {
		if s == name {
			return LogLevel(i), true
		}
	}
	return LevelInfo, false
}

// Logger writes printf-style messages. msg doubles as the translation key,
// so callers pass constant format strings.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a logger that prefixes messages with
	// "[component] " and shares the parent's output.
	WithComponent(component string) Logger
}
