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

	"github.com/rs/zerolog/log"

	"github.com/brightpost/brightpost-backend/internal/common"
	"github.com/brightpost/brightpost-backend/internal/domain"
)

// ImageRequest carries what the image services need for one render
type ImageRequest struct {
	Client  *domain.Client
	Topic   string
	Caption string
}

// ImageGenerator renders a branded image for a post. Implementations
// return a URL, or an error the pipeline classifies for retry.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// templateImageGenerator renders through a template service first and
// falls back to a prompt-based generation API when that fails
type templateImageGenerator struct {
	templateURL       string
	templateAPIKey    string
	defaultTemplateID string
	promptURL         string
	promptAPIKey      string
	httpClient        *http.Client
}

// NewImageGenerator wires the two-stage image adapter
func NewImageGenerator(templateURL, templateAPIKey, defaultTemplateID, promptURL, promptAPIKey string, timeout time.Duration) ImageGenerator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &templateImageGenerator{
		templateURL:       strings.TrimRight(templateURL, "/"),
		templateAPIKey:    templateAPIKey,
		defaultTemplateID: defaultTemplateID,
		promptURL:         strings.TrimRight(promptURL, "/"),
		promptAPIKey:      promptAPIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *templateImageGenerator) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if g.templateURL != "" {
		url, err := g.renderTemplate(ctx, req)
		if err == nil {
			return url, nil
		}
		log.Warn().Err(err).
			Int64("client_id", req.Client.ID).
			Msg("template render failed, trying prompt generation")
	}

	if g.promptURL == "" {
		return "", common.Transient(errors.New("no image backend produced a result"))
	}
	return g.generateFromPrompt(ctx, req)
}

// renderTemplate fills the client's template with the post headline
func (g *templateImageGenerator) renderTemplate(ctx context.Context, req ImageRequest) (string, error) {
	templateID := req.Client.ImageTemplateID
	if templateID == "" {
		templateID = g.defaultTemplateID
	}
	if templateID == "" {
		return "", errors.New("no image template configured")
	}

	reqBody := map[string]interface{}{
		"template_uuid": templateID,
		"layers": map[string]interface{}{
			"headline": map[string]string{"text": req.Topic},
			"business": map[string]string{"text": req.Client.BusinessName},
		},
	}

	respBody, err := g.post(ctx, g.templateURL+"/images", g.templateAPIKey, reqBody)
	if err != nil {
		return "", err
	}

	var result struct {
		Status   string `json:"status"`
		ImageURL string `json:"image_url"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse template response: %w", err)
	}
	if result.ImageURL == "" {
		return "", fmt.Errorf("template render returned no image (status %q)", result.Status)
	}
	return result.ImageURL, nil
}

// generateFromPrompt asks the generation API for an image from scratch
func (g *templateImageGenerator) generateFromPrompt(ctx context.Context, req ImageRequest) (string, error) {
	prompt := fmt.Sprintf(
		"A professional social media image for %s, a %s business. Theme: %s. Clean, modern, no text overlays.",
		req.Client.BusinessName, req.Client.Industry, req.Topic)

	reqBody := map[string]interface{}{
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1024",
	}

	respBody, err := g.post(ctx, g.promptURL+"/images/generations", g.promptAPIKey, reqBody)
	if err != nil {
		return "", err
	}

	var result struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", common.Transient(fmt.Errorf("parse image generation response: %w", err))
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", common.Transient(errors.New("no image in generation response"))
	}
	return result.Data[0].URL, nil
}

func (g *templateImageGenerator) post(ctx context.Context, url, apiKey string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("image request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("read image response: %w", err))
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		apiErr := fmt.Errorf("image API (%d): %s", resp.StatusCode, truncateStr(string(respBody), 200))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, common.Transient(apiErr)
		}
		return nil, apiErr
	}
	return respBody, nil
}
