package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightpost/brightpost-backend/internal/domain"
)

// OutcomeLogger records the final outcome of every publish attempt
type OutcomeLogger interface {
	Record(ctx context.Context, entry domain.PublishLogEntry) error
}

var publishLogHeader = []string{
	"timestamp", "client_name", "content_id", "status",
	"final_caption", "final_image_url", "platform_post_ids",
}

// publishLogger appends to a remote log endpoint and falls back to a
// local CSV when the remote is unreachable. A fallback append is still
// a success for the caller.
type publishLogger struct {
	remoteURL  string
	apiKey     string
	localPath  string
	httpClient *http.Client

	mu sync.Mutex // serializes local file appends
}

// NewOutcomeLogger creates the publish outcome logger
func NewOutcomeLogger(remoteURL, apiKey, localPath string) OutcomeLogger {
	return &publishLogger{
		remoteURL: remoteURL,
		apiKey:    apiKey,
		localPath: localPath,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (l *publishLogger) Record(ctx context.Context, entry domain.PublishLogEntry) error {
	if l.remoteURL != "" {
		if err := l.recordRemote(ctx, entry); err == nil {
			return nil
		} else {
			log.Warn().Err(err).
				Int64("content_id", entry.ContentID).
				Msg("remote publish log unreachable, appending locally")
		}
	}
	return l.recordLocal(entry)
}

func (l *publishLogger) recordRemote(ctx context.Context, entry domain.PublishLogEntry) error {
	bodyBytes, err := json.Marshal(map[string]interface{}{
		"values": [][]string{entry.Row()},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.remoteURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("publish log request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("publish log API (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func (l *publishLogger) recordLocal(entry domain.PublishLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create publish log dir: %w", err)
		}
	}

	info, statErr := os.Stat(l.localPath)
	needHeader := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(l.localPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open publish log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(publishLogHeader); err != nil {
			return err
		}
	}
	if err := w.Write(entry.Row()); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
