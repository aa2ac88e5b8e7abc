package util

import (
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/GoNZooo/fileutils/internal/source"
)

func TestSourceLoggerGoesToLogrus(t *testing.T) {
	var logs LogWriter
	log.SetOutput(&logs)
	log.SetLevel(log.DebugLevel)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{})
		log.SetLevel(log.InfoLevel)
	})

	var logger source.Logger = &SourceLogger{}
	logger.Debug("debugging")
	logger.Info("informing")
	logger.Error("failing")

	assert.Equal(t, logs.String(),
		"level=debug msg=debugging\n"+
			"level=info msg=informing\n"+
			"level=error msg=failing\n")
}
