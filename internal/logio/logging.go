package logio

import (
	"fmt"
	"strings"
)

// Logging carries an optional printf-style trace function; the zero value
// logs nothing.
type Logging struct {
	Logfn func(mess string, args ...interface{})

	markWidth int
}

// Enabled returns true if a trace function is set; callers use it to avoid
// formatting work on hot paths.
func (log *Logging) Enabled() bool { return log.Logfn != nil }

// WithPrefix prepends prefix to every message until the returned restore
// function is called.
func (log *Logging) WithPrefix(prefix string) func() {
	logfn := log.Logfn
	if logfn == nil {
		return func() {}
	}
	log.Logfn = func(mess string, args ...interface{}) {
		logfn(prefix+mess, args...)
	}
	return func() {
		log.Logfn = logfn
	}
}

// Logf logs a message behind a mark, such as an instruction address; marks
// are left padded with their first rune so that messages line up.
func (log *Logging) Logf(mark, mess string, args ...interface{}) {
	if log.Logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		for _, r := range mark {
			mark = strings.Repeat(string(r), n) + mark
			break
		}
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.Logfn("%v %v", mark, mess)
}
