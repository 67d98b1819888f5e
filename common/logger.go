package common

import "go.uber.org/zap"

type LogLevel int32

const (
	DEBUG_INFO_DETAIL LogLevel = 1
	DEBUG_INFO                 = 2
	DEBUGGING                  = 8
	INFO                       = 16
	WARN                       = 32
	ERROR                      = 64
	FATAL                      = 128
)

var LogLevelSetting LogLevel = WARN | ERROR | FATAL

var sugar = zap.NewNop().Sugar()

// SetLogger redirects ShPrintf output. nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		sugar = zap.NewNop().Sugar()
		return
	}
	sugar = l.Sugar()
}

func ShPrintf(logLevel LogLevel, fmtStl string, a ...interface{}) {
	if logLevel&LogLevelSetting == 0 {
		return
	}
	switch {
	case logLevel >= ERROR:
		sugar.Errorf(fmtStl, a...)
	case logLevel >= WARN:
		sugar.Warnf(fmtStl, a...)
	case logLevel >= INFO:
		sugar.Infof(fmtStl, a...)
	default:
		sugar.Debugf(fmtStl, a...)
	}
}
