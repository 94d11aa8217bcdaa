package ldap

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// logger is the package logger for wire tracing. It is silent until a
// debug level is set; levels follow the conventional 0=off, 1=calls,
// 2=packets scale from the C library's debug option.
var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	l.SetOutput(io.Discard)
	return l
}

// SetLogOutput directs trace output. Tracing still requires a nonzero
// debug level, set via OptionDebugLevel.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

func applyDebugLevel(level int) {
	switch {
	case level <= 0:
		logger.SetLevel(logrus.ErrorLevel)
	case level == 1:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.TraceLevel)
	}
}

// traceRequest logs an outgoing operation. Credentials are never
// logged; callers pass only structural fields.
func traceRequest(op string, msgID int, fields logrus.Fields) {
	if !logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["op"] = op
	fields["msgid"] = msgID
	logger.WithFields(fields).Debug("request")
}

func tracePacket(dir string, pkt *Packet) {
	if !logger.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	var b strings.Builder
	if err := pkt.Format(&b); err != nil {
		return
	}
	logger.WithField("dir", dir).Trace(b.String())
}
