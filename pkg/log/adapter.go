package log

import "github.com/sirupsen/logrus"

// BadgerLogger routes badger's internal logging through logrus.
// Badger's info chatter (compactions, value log replay) is demoted to debug.
type BadgerLogger struct {
	entry *logrus.Entry
}

// NewBadgerLogger creates a new adapter
func NewBadgerLogger(entry *logrus.Entry) *BadgerLogger {
	return &BadgerLogger{entry: entry}
}

// Errorf logs an error message
func (l *BadgerLogger) Errorf(f string, v ...interface{}) { l.entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogger) Warningf(f string, v ...interface{}) { l.entry.Warnf(f, v...) }

// Infof logs at debug level
func (l *BadgerLogger) Infof(f string, v ...interface{}) { l.entry.Debugf(f, v...) }

// Debugf logs a debug message
func (l *BadgerLogger) Debugf(f string, v ...interface{}) { l.entry.Debugf(f, v...) }
