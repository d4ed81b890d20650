package service

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brightpost/brightpost-backend/internal/domain"
)

func sampleEntry() domain.PublishLogEntry {
	return domain.PublishLogEntry{
		Timestamp:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		ClientID:     1,
		ClientName:   "GreenScape Pros",
		ContentID:    42,
		Outcome:      "published",
		FinalCaption: "Spring is here!",
		ImageRef:     "https://cdn.example.com/render-1.png",
		PlatformPostIDs: map[string]string{
			"instagram": "ig-1",
			"facebook":  "fb-1",
		},
	}
}

func TestRecord_RemoteOK(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "Bearer log-key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	localPath := filepath.Join(t.TempDir(), "publish_log.csv")
	logger := NewOutcomeLogger(server.URL, "log-key", localPath)

	err := logger.Record(context.Background(), sampleEntry())
	assert.NoError(t, err)
	assert.True(t, called)

	_, statErr := os.Stat(localPath)
	assert.True(t, os.IsNotExist(statErr), "local fallback must stay untouched when remote succeeds")
}

func TestRecord_FallsBackToLocalCSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	localPath := filepath.Join(t.TempDir(), "logs", "publish_log.csv")
	logger := NewOutcomeLogger(server.URL, "k", localPath)

	assert.NoError(t, logger.Record(context.Background(), sampleEntry()))

	second := sampleEntry()
	second.ContentID = 43
	second.Outcome = "publish_failed"
	assert.NoError(t, logger.Record(context.Background(), second))

	f, err := os.Open(localPath)
	assert.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, rows, 3, "header plus two entries")
	assert.Equal(t, publishLogHeader, rows[0])
	assert.Equal(t, "2026-03-14T09:30:00Z", rows[1][0])
	assert.Equal(t, "GreenScape Pros", rows[1][1])
	assert.Equal(t, "42", rows[1][2])
	assert.Equal(t, "published", rows[1][3])
	assert.Equal(t, "facebook:fb-1;instagram:ig-1", rows[1][6])
	assert.Equal(t, "publish_failed", rows[2][3])
}

func TestRecord_NoRemoteConfigured(t *testing.T) {
	localPath := filepath.Join(t.TempDir(), "publish_log.csv")
	logger := NewOutcomeLogger("", "", localPath)

	assert.NoError(t, logger.Record(context.Background(), sampleEntry()))

	data, err := os.ReadFile(localPath)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "Spring is here!")
}
