package state

import (
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// Logger routes jinzhu/gorm output into the node logger.
type Logger struct {
	logger cmtlog.Logger
}

func GormLogger(lg cmtlog.Logger) Logger {
	return Logger{logger: lg}
}

func (l Logger) Print(v ...interface{}) {
	if len(v) == 0 {
		return
	}
	switch v[0] {
	case "sql":
		if len(v) >= 6 {
			l.logger.Debug("sql", "source", v[1], "duration", v[2], "query", v[3], "rows", v[5])
			return
		}
	case "log":
		if len(v) >= 3 {
			l.logger.Info("gorm", "source", v[1], "msg", v[2:])
			return
		}
	}
	l.logger.Debug("gorm", "values", v)
}
