package badgerstore

import (
	"fmt"
	"log/slog"
	"strings"
)

// slogAdapter routes Badger's printf-style logging into slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error(a.msg(format, args))
}

func (a slogAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn(a.msg(format, args))
}

func (a slogAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug(a.msg(format, args))
}

func (a slogAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug(a.msg(format, args))
}

func (a slogAdapter) msg(format string, args []interface{}) string {
	return "badger: " + strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
