package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/northbynortheast/signmaker/pkg/observability"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps writing to w at
// the given level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// rotatingFile returns a size-rotated log file writer.
func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64, // megabytes
		MaxBackups: 7,
		MaxAge:     7, // days
	}
}

// teeToFile makes c.Logger also write to a rotating file at path. The
// returned closer flushes and closes the file.
func (c *CLI) teeToFile(console io.Writer, path string) io.Closer {
	file := rotatingFile(path)
	c.Logger.SetOutput(io.MultiWriter(console, file))
	return file
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Generated 12 images (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// =============================================================================
// Observability
// =============================================================================

// logHooks reports pipeline and upload events to the logger at debug level.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnVariantStart(_ context.Context, mNumber, code string) {
	h.logger.Debug("variant started", "m_number", mNumber, "code", code)
}

func (h logHooks) OnVariantComplete(_ context.Context, mNumber, code string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("variant finished", "m_number", mNumber, "code", code, "duration", d, "err", err)
		return
	}
	h.logger.Debug("variant finished", "m_number", mNumber, "code", code, "duration", d)
}

func (h logHooks) OnUpload(_ context.Context, bucket, key string, size int64, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("upload failed", "bucket", bucket, "key", key, "err", err)
		return
	}
	h.logger.Debug("uploaded", "bucket", bucket, "key", key, "bytes", size, "duration", d)
}

// installHooks routes observability events to c.Logger.
func (c *CLI) installHooks() {
	h := logHooks{logger: c.Logger}
	observability.SetVariantHooks(h)
	observability.SetUploadHooks(h)
}
