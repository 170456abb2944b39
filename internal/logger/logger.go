// Package logger configures logrus for docsift's diagnostics.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Init sets the global level and formatter. Unknown levels fall back to
// info. Output goes to stderr so stdout stays free for command results and
// the MCP stdio transport.
func Init(level string, json bool) {
	InitWithOutput(level, json, os.Stderr)
}

// InitWithOutput is Init with an explicit destination.
func InitWithOutput(level string, json bool, w io.Writer) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}
	logrus.SetOutput(w)
	logrus.SetLevel(lvl)
}

// New returns an entry tagged with the component name.
func New(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// Discard returns an entry that drops everything, for tests and quiet callers.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
