package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
)

var exportHeader = []string{
	"platform", "caption", "hashtags", "image_url", "scheduled_at",
}

// ExportWriter writes a manual-scheduling CSV when automated
// publishing is off the table for a record
type ExportWriter interface {
	WriteExport(client *domain.Client, content *domain.Content, platforms []string) (string, error)
}

type csvExportWriter struct {
	dir string
}

// NewExportWriter creates a writer that drops one CSV per record
// under dir
func NewExportWriter(dir string) ExportWriter {
	return &csvExportWriter{dir: dir}
}

// WriteExport writes one row per remaining platform, using the
// platform variant caption where one exists. The file name embeds a
// fresh UUID so repeated exports never collide.
func (e *csvExportWriter) WriteExport(client *domain.Client, content *domain.Content, platforms []string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrExportUnwritable, err)
	}

	name := fmt.Sprintf("export_%d_%s.csv", content.ID, uuid.New().String())
	path := filepath.Join(e.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrExportUnwritable, err)
	}
	defer f.Close()

	scheduledAt := ""
	if content.ScheduledAt != nil {
		scheduledAt = content.ScheduledAt.UTC().Format(time.RFC3339)
	}
	hashtags := strings.Join(content.Hashtags, " ")

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrExportUnwritable, err)
	}
	for _, platform := range platforms {
		caption := content.Caption
		if variant, ok := content.PlatformCaptions[platform]; ok && variant != "" {
			caption = variant
		}
		row := []string{platform, caption, hashtags, content.FinalImageRef(), scheduledAt}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrExportUnwritable, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrExportUnwritable, err)
	}
	return path, nil
}
