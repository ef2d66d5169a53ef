// Package rawlog archives raw forecast responses as JSON files.
package rawlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
)

// FileSink writes each response to <dir>/<city>_<YYYYMMDD_HHMMSS>.json.
// It implements pipeline.Archiver.
type FileSink struct {
	dir    string
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewFileSink creates a sink rooted at dir. The directory is created on
// first write.
func NewFileSink(dir string, clock clockwork.Clock, logger *slog.Logger) *FileSink {
	return &FileSink{dir: dir, clock: clock, logger: logger}
}

// Archive writes payload pretty-printed when it is valid JSON, verbatim otherwise.
func (s *FileSink) Archive(_ context.Context, cityName string, payload []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create raw log dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", sanitize(cityName), s.clock.Now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		buf.Reset()
		buf.Write(payload)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write raw response: %w", err)
	}
	s.logger.Debug("saved raw response", "city", cityName, "path", path)
	return nil
}

// sanitize keeps city names usable as file names.
func sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, name)
}
