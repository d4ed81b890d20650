package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// PublishLogEntry is one row of the append-only publish audit log.
// The same schema is used for the remote log and the local CSV
// fallback, and for failures as well as successes.
type PublishLogEntry struct {
	Timestamp       time.Time         `json:"timestamp"`
	ClientID        int64             `json:"client_id"`
	ClientName      string            `json:"client_name"`
	ContentID       int64             `json:"content_id"`
	Outcome         string            `json:"outcome"`
	FinalCaption    string            `json:"final_caption"`
	ImageRef        string            `json:"image_ref"`
	PlatformPostIDs map[string]string `json:"platform_post_ids"`
}

// Row formats the entry in the fixed log column order:
// timestamp, client_name, content_id, status, final_caption,
// final_image_url, platform_post_ids
func (e PublishLogEntry) Row() []string {
	pairs := make([]string, 0, len(e.PlatformPostIDs))
	for platform, postID := range e.PlatformPostIDs {
		pairs = append(pairs, platform+":"+postID)
	}
	sort.Strings(pairs)

	return []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.ClientName,
		strconv.FormatInt(e.ContentID, 10),
		e.Outcome,
		e.FinalCaption,
		e.ImageRef,
		strings.Join(pairs, ";"),
	}
}
