/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.SugaredLogger
}

// With returns child logger with additional context, parent is not modified
func (m *Logger) With(args ...interface{}) *Logger {
	return &Logger{m.SugaredLogger.With(args...)}
}

func setupLogger(encoding string, level string) (*Logger, error) {
	rawJSON := []byte(fmt.Sprintf(`{
	  "level": "%s",
	  "encoding": "%s",
	  "outputPaths": ["stdout"],
	  "errorOutputPaths": ["stderr"],
	  "encoderConfig": {
	    "messageKey": "message",
	    "levelKey": "level",
		"levelEncoder": "uppercase",
        "timeKey": "time",
		"timeEncoder": "ISO8601",
		"callerKey": "caller",
		"callerEncoder": "short"
	  }
	}`, level, encoding))

	var cfg zap.Config
	if err := jsoniter.Unmarshal(rawJSON, &cfg); err != nil {
		return nil, err
	}
	if encoding == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	_ = logger.Sync()
	return &Logger{logger.Sugar()}, nil
}

// NewLogger creates logger, falls back to info/console on bad settings
func NewLogger(level, encoding string) *Logger {
	l, err := setupLogger(encoding, level)
	if err != nil {
		l, err = setupLogger("console", "info")
		if err != nil {
			panic(err)
		}
		l.Warnf("bad logger settings, level: %q, encoding: %q, using defaults", level, encoding)
	}
	return l
}

func newRunnerLogger(cfg *RunnerConfig) *Logger {
	return NewLogger(cfg.LogLevel, cfg.LogEncoding)
}
