package badgerindex

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// logger routes badger's printf-style logging into slog.
type logger struct {
	log *slog.Logger
}

func newLogger(log *slog.Logger) badger.Logger {
	return logger{log: log.With("component", "badger")}
}

func (l logger) Errorf(format string, args ...any) {
	l.log.Error(message(format, args))
}

func (l logger) Warningf(format string, args ...any) {
	l.log.Warn(message(format, args))
}

func (l logger) Infof(format string, args ...any) {
	l.log.Debug(message(format, args))
}

func (l logger) Debugf(format string, args ...any) {
	l.log.Debug(message(format, args))
}

func message(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
