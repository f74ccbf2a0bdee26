package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/warpdl/warpstream/pkg/logger"
)

// newLogger logs to stderr, and also to logFile when set. Info messages are
// only shown in debug mode.
func newLogger(debug bool, logFile string) (logger.Logger, error) {
	var l logger.Logger = logger.NewStandardLogger(log.New(os.Stderr, "warpstream: ", log.LstdFlags))
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
		l = logger.NewMultiLogger(l, &fileLogger{
			StandardLogger: logger.NewStandardLogger(log.New(f, "", log.LstdFlags|log.Lmicroseconds)),
			f:              f,
		})
	}
	if !debug {
		l = logger.Quiet(l)
	}
	return l, nil
}

type fileLogger struct {
	*logger.StandardLogger
	f *os.File
}

func (l *fileLogger) Close() error {
	return l.f.Close()
}
