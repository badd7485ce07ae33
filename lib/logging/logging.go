package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the global logrus logger.
type Options struct {
	Level string
	Debug bool
	File  string
}

// Setup configures the global logger. When File is set, entries go to stderr
// as text and to a rotated file as JSON.
func Setup(opts Options) error {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}
	if opts.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	if opts.File == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return errors.Wrap(err, "failed to create log directory")
	}

	log.AddHook(&fileHook{
		writer: &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     7,
			Compress:   true,
		},
		formatter: &log.JSONFormatter{},
	})
	return nil
}

type fileHook struct {
	writer    io.Writer
	formatter log.Formatter
}

func (h *fileHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *fileHook) Fire(entry *log.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
