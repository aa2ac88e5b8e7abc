package util

import log "github.com/sirupsen/logrus"

// SourceLogger adapts logrus to the source.Logger interface
type SourceLogger struct{}

func (l *SourceLogger) Debug(message string) {
	log.Debug(message)
}

func (l *SourceLogger) Info(message string) {
	log.Info(message)
}

func (l *SourceLogger) Error(message string) {
	log.Error(message)
}
