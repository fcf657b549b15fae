package tracker

import "go.uber.org/zap"

const DefaultVerboseFlag = "engage-messaging-verbose-logging"

// Runtime is the explicit execution context of one invocation. It decides
// whether info/error logs are emitted.
type Runtime struct {
	Features       map[string]bool
	Caller         string
	VerboseFlag    string
	TrustedCallers []string
}

func (r Runtime) LoggingEnabled() bool {
	flag := r.VerboseFlag
	if flag == "" {
		flag = DefaultVerboseFlag
	}
	if r.Features[flag] {
		return true
	}
	for _, c := range r.TrustedCallers {
		if c != "" && c == r.Caller {
			return true
		}
	}
	return false
}

// Logger is a zap logger gated by a Runtime.
type Logger struct {
	l       *zap.Logger
	enabled bool
}

func NewLogger(l *zap.Logger, rt Runtime) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{l: l, enabled: rt.LoggingEnabled()}
}

func (lg *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l: lg.l.With(fields...), enabled: lg.enabled}
}

func (lg *Logger) Enabled() bool { return lg.enabled }

func (lg *Logger) Info(msg string, fields ...zap.Field) {
	if lg.enabled {
		lg.l.Info(msg, fields...)
	}
}

func (lg *Logger) Error(msg string, fields ...zap.Field) {
	if lg.enabled {
		lg.l.Error(msg, fields...)
	}
}
