package logio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with printf-style leveled functions and "exit
// non-zero if any error was logged" semantics.
type Logger struct {
	mu       sync.Mutex
	zl       zerolog.Logger
	exitCode int
}

// NewLogger returns a Logger writing through zl.
func NewLogger(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// Zerolog returns the underlying logger.
func (log *Logger) Zerolog() zerolog.Logger { return log.zl }

// Leveledf returns a printf-style function logging at the given level, the
// shape expected by trace hooks.
func (log *Logger) Leveledf(level zerolog.Level) func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) {
		log.zl.WithLevel(level).Msg(format(mess, args))
	}
}

// Printf logs an info level message.
func (log *Logger) Printf(mess string, args ...interface{}) {
	log.zl.Info().Msg(format(mess, args))
}

// ErrorIf logs any non-nil error through Errorf.
func (log *Logger) ErrorIf(err error) {
	if err != nil {
		log.Errorf("%+v", err)
	}
}

// Errorf logs an error and retains state so that ExitCode returns non-zero.
func (log *Logger) Errorf(mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.zl.Error().Msg(format(mess, args))
	log.exitCode = 1
}

// ExitCode returns a code to pass to os.Exit.
func (log *Logger) ExitCode() int {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.exitCode
}

func format(mess string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(mess, args...)
	}
	return mess
}
