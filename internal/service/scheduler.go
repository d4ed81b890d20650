package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brightpost/brightpost-backend/internal/common"
)

// SchedulerCredentials select which workspace a dispatch talks to.
// Exactly one resolution path fills these, so a record can never mix
// credentials from different workspaces.
type SchedulerCredentials struct {
	APIKey      string
	WorkspaceID string
}

// ScheduleRequest is one platform post handed to the scheduling service
type ScheduleRequest struct {
	AccountID   string
	Platform    string
	Caption     string
	ImageURL    string
	ScheduledAt *time.Time
}

// SchedulerClient talks to the external publishing service
type SchedulerClient interface {
	// ListAccountIDs returns the social account ids visible in the
	// credentialed workspace
	ListAccountIDs(ctx context.Context, creds SchedulerCredentials) ([]string, error)

	// Schedule queues one post and returns the provider's post id
	Schedule(ctx context.Context, creds SchedulerCredentials, req ScheduleRequest) (string, error)
}

type httpSchedulerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSchedulerClient creates the HTTP scheduling adapter
func NewSchedulerClient(baseURL string, timeout time.Duration) SchedulerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpSchedulerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *httpSchedulerClient) ListAccountIDs(ctx context.Context, creds SchedulerCredentials) ([]string, error) {
	respBody, err := c.do(ctx, creds, "GET", "/accounts", nil, "")
	if err != nil {
		return nil, err
	}

	var result struct {
		Accounts []struct {
			ID string `json:"id"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, common.Transient(fmt.Errorf("parse accounts response: %w", err))
	}

	ids := make([]string, 0, len(result.Accounts))
	for _, a := range result.Accounts {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (c *httpSchedulerClient) Schedule(ctx context.Context, creds SchedulerCredentials, req ScheduleRequest) (string, error) {
	post := map[string]interface{}{
		"account_id": req.AccountID,
		"text":       req.Caption,
	}
	if req.ImageURL != "" {
		post["media"] = []map[string]string{{"url": req.ImageURL}}
	}
	state := "publish"
	if req.ScheduledAt != nil {
		state = "scheduled"
		post["scheduled_at"] = req.ScheduledAt.UTC().Format(time.RFC3339)
	}

	body := map[string]interface{}{
		"bulk": map[string]interface{}{
			"state": state,
			"posts": []map[string]interface{}{post},
		},
	}

	respBody, err := c.do(ctx, creds, "POST", "/posts/schedule", body, req.Platform)
	if err != nil {
		return "", err
	}

	var result struct {
		Posts []struct {
			ID string `json:"id"`
		} `json:"posts"`
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", common.Transient(fmt.Errorf("parse schedule response: %w", err))
	}

	if len(result.Posts) > 0 && result.Posts[0].ID != "" {
		return result.Posts[0].ID, nil
	}
	if result.JobID != "" {
		return result.JobID, nil
	}
	return "", common.Transient(errors.New("no post id in schedule response"))
}

func (c *httpSchedulerClient) do(ctx context.Context, creds SchedulerCredentials, method, path string, body interface{}, platform string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer-API "+creds.APIKey)
	req.Header.Set("Publer-Workspace-Id", creds.WorkspaceID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("scheduler request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("read scheduler response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, common.Transient(fmt.Errorf("scheduler API (%d): %s", resp.StatusCode, truncateStr(string(respBody), 200)))
	default:
		// Auth, validation and policy rejections never heal on retry
		return nil, &common.StructuralError{
			Platform: platform,
			Reason:   fmt.Sprintf("scheduler API (%d): %s", resp.StatusCode, truncateStr(string(respBody), 200)),
		}
	}
}
