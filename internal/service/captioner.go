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
	"github.com/brightpost/brightpost-backend/internal/domain"
)

// CaptionRequest carries everything the text model needs for one draft
type CaptionRequest struct {
	Client      *domain.Client
	Topic       string
	ContentType domain.ContentType
	Notes       string
	MediaRefs   []string
	Platforms   []string
	// Feedback from a prior human rejection, empty on first attempt
	RejectionReason string
	PriorCaption    string
}

// CaptionResult is a validated model draft
type CaptionResult struct {
	Caption          string            `json:"caption"`
	Hashtags         []string          `json:"hashtags"`
	CTA              string            `json:"cta"`
	PlatformCaptions map[string]string `json:"platform_captions"`
}

// TextGenerator produces captions and infers topics from media.
// Implementations classify failures: transient ones are wrapped so the
// pipeline retries, everything else surfaces as-is.
type TextGenerator interface {
	GenerateCaption(ctx context.Context, req CaptionRequest) (*CaptionResult, error)
	InferTopic(ctx context.Context, imageRef string, client *domain.Client) (string, error)
}

type openAICaptioner struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewTextGenerator creates a caption adapter against an OpenAI-format
// chat completion endpoint
func NewTextGenerator(baseURL, apiKey, model string, timeout time.Duration) TextGenerator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &openAICaptioner{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *openAICaptioner) GenerateCaption(ctx context.Context, req CaptionRequest) (*CaptionResult, error) {
	systemPrompt := buildCaptionSystemPrompt(req.Client)
	userMessage := buildCaptionUserMessage(req)

	rawText, err := c.callProvider(ctx, systemPrompt, userMessage)
	if err != nil {
		return nil, err
	}

	jsonStr := extractJSON(rawText)

	var result CaptionResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		// Malformed model output can succeed on a retry
		return nil, common.Transient(fmt.Errorf("parse caption response: %w", err))
	}

	if strings.TrimSpace(result.Caption) == "" {
		return nil, common.Transient(errors.New("model returned an empty caption"))
	}

	// Variants for platforms the client never enabled are dropped,
	// not stored
	if len(result.PlatformCaptions) > 0 {
		enabled := make(map[string]bool, len(req.Platforms))
		for _, p := range req.Platforms {
			enabled[p] = true
		}
		for platform := range result.PlatformCaptions {
			if !enabled[platform] {
				delete(result.PlatformCaptions, platform)
			}
		}
	}

	return &result, nil
}

func (c *openAICaptioner) InferTopic(ctx context.Context, imageRef string, client *domain.Client) (string, error) {
	systemPrompt := "You are a social media strategist. Given an image from a business, " +
		"respond with a single short topic line describing what a post about this image should cover. " +
		"Respond with the topic only, no quotes, no explanation."
	userMessage := fmt.Sprintf("Business: %s (%s)\nImage: %s",
		client.BusinessName, client.Industry, imageRef)

	rawText, err := c.callProvider(ctx, systemPrompt, userMessage)
	if err != nil {
		return "", err
	}

	topic := strings.TrimSpace(strings.Trim(rawText, `"`))
	if topic == "" {
		return "", common.Transient(errors.New("model returned an empty topic"))
	}
	return topic, nil
}

// callProvider posts an OpenAI-format chat completion request
func (c *openAICaptioner) callProvider(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMessage},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", common.Transient(fmt.Errorf("text generation request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", common.Transient(fmt.Errorf("read text generation response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("text generation API (%d): %s", resp.StatusCode, truncateStr(string(respBody), 200))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", common.Transient(apiErr)
		}
		return "", apiErr
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", common.Transient(fmt.Errorf("parse text generation response: %w", err))
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", common.Transient(errors.New("no text in model response"))
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func buildCaptionSystemPrompt(client *domain.Client) string {
	var b strings.Builder
	b.WriteString("You are a social media copywriter for small local businesses. ")
	b.WriteString("Write an engaging post caption in the business's voice.\n\n")
	fmt.Fprintf(&b, "Business: %s\n", client.BusinessName)
	fmt.Fprintf(&b, "Industry: %s\n", client.Industry)
	if loc := client.Location(); loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}
	if client.BrandVoice != "" {
		fmt.Fprintf(&b, "Brand voice: %s\n", client.BrandVoice)
	}
	if client.TonePreference != "" {
		fmt.Fprintf(&b, "Tone: %s\n", client.TonePreference)
	}
	if len(client.OffLimitsTopics) > 0 {
		fmt.Fprintf(&b, "Never mention: %s\n", strings.Join(client.OffLimitsTopics, ", "))
	}
	b.WriteString("\nRespond with JSON only:\n")
	b.WriteString(`{"caption": "...", "hashtags": ["...", "..."], "cta": "...", "platform_captions": {"<platform>": "..."}}`)
	b.WriteString("\nThe cta is one short call-to-action sentence inviting the reader to act.")
	b.WriteString("\nInclude platform_captions entries only where a platform genuinely needs different copy.")
	return b.String()
}

func buildCaptionUserMessage(req CaptionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "Post type: %s\n", req.ContentType)
	fmt.Fprintf(&b, "Target platforms: %s\n", strings.Join(req.Platforms, ", "))
	if req.Notes != "" {
		fmt.Fprintf(&b, "Client notes: %s\n", req.Notes)
	}
	if len(req.MediaRefs) > 0 {
		fmt.Fprintf(&b, "Attached media: %s\n", strings.Join(req.MediaRefs, ", "))
	}
	if req.RejectionReason != "" {
		b.WriteString("\nA previous draft was rejected by the client. Write a new caption that addresses the feedback.\n")
		fmt.Fprintf(&b, "Previous caption: %s\n", req.PriorCaption)
		fmt.Fprintf(&b, "Feedback: %s\n", req.RejectionReason)
	}
	return b.String()
}

// extractJSON pulls the JSON payload out of a fenced code block when
// the model wraps its answer in one
func extractJSON(rawText string) string {
	fence := "```"
	if idx := strings.Index(rawText, fence); idx >= 0 {
		start := strings.Index(rawText[idx:], "\n")
		if start >= 0 {
			end := strings.Index(rawText[idx+start+1:], fence)
			if end >= 0 {
				return strings.TrimSpace(rawText[idx+start+1 : idx+start+1+end])
			}
		}
	}
	return strings.TrimSpace(rawText)
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
