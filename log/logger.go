// Package log provides the named, leveled loggers used across the render
// pipeline. Each subsystem (session, device, synchronizer) gets its own
// module name so verbosity can be followed per component in the output.
package log

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

type Level logging.Level

// Verbosity levels accepted by SetLevel.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levelMap = map[Level]logging.Level{
	Debug:   logging.DEBUG,
	Info:    logging.INFO,
	Notice:  logging.NOTICE,
	Warning: logging.WARNING,
	Error:   logging.ERROR,
}

// Log lines carry a timestamp, the module name and a fixed-width level
// tag. The default sink is stderr so command output on stdout stays
// pipeable.
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{module:-16s} %{level:-8s}%{color:reset} %{message}`,
)

var leveledBackend logging.LeveledBackend

// Logger is the formatted-output surface the pipeline logs through.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Noticef(format string, v ...interface{})
	Warningf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// New returns the named logger for a pipeline component.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink redirects all log output to the given writer.
func SetSink(sink io.Writer) {
	backend := logging.NewLogBackend(sink, "", 0)
	leveledBackend = logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	leveledBackend.SetLevel(logging.NOTICE, "")
	logging.SetBackend(leveledBackend)
}

// SetLevel adjusts verbosity for every module.
func SetLevel(level Level) {
	leveledBackend.SetLevel(levelMap[level], "")
}

func init() {
	SetSink(os.Stderr)
	SetLevel(Notice)
}
