package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

// LogrusAdapter routes watermill logs into logrus
type LogrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter wraps a logrus logger for watermill components
func NewLogrusAdapter(logger logrus.FieldLogger) watermill.LoggerAdapter {
	return &LogrusAdapter{entry: logger.WithField("component", "watermill")}
}

// Error logs at error level with err attached
func (l *LogrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

// Info logs at info level
func (l *LogrusAdapter) Info(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

// Debug logs at debug level
func (l *LogrusAdapter) Debug(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

// Trace logs at trace level
func (l *LogrusAdapter) Trace(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Trace(msg)
}

// With returns an adapter that adds fields to every entry
func (l *LogrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LogrusAdapter{entry: l.entry.WithFields(logrus.Fields(fields))}
}
