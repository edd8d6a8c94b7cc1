package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/ryanreadbooks/primon/config"
)

// slogger adapts slog to the logger interface whatsmeow expects.
type slogger struct {
	l *slog.Logger
}

func newLogger(l *slog.Logger, module string) waLog.Logger {
	return &slogger{l: l.With("module", module)}
}

func (s *slogger) log(level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	if !s.l.Enabled(ctx, level) {
		return
	}
	s.l.Log(ctx, level, fmt.Sprintf(msg, args...))
}

func (s *slogger) Warnf(msg string, args ...any)  { s.log(slog.LevelWarn, msg, args...) }
func (s *slogger) Errorf(msg string, args ...any) { s.log(slog.LevelError, msg, args...) }
func (s *slogger) Infof(msg string, args ...any)  { s.log(slog.LevelInfo, msg, args...) }

// Debug output of the client is only shown at the trace level.
func (s *slogger) Debugf(msg string, args ...any) { s.log(config.LevelTrace, msg, args...) }

func (s *slogger) Sub(module string) waLog.Logger {
	return &slogger{l: s.l.With("sub", module)}
}
