package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/minkyu/hagwon/internal/config"
)

// Completer abstracts the chat-completions call so the extraction and
// generation engines can be exercised without a live model endpoint.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}

// CompletionRequest carries one system/user exchange. ImageData is optional;
// when set the user message becomes multimodal with a base64 data URL.
type CompletionRequest struct {
	System      string
	User        string
	ImageData   []byte
	ImageFormat string
	MaxTokens   int
}

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewOpenAIClient creates a chat completions client.
// Parameters:
//   - cfg: model configuration including model name, API key, and base URL.
//
// Returns:
//   - *OpenAIClient: initialized client wrapper.
func NewOpenAIClient(cfg *config.ModelConfig) *OpenAIClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Set timeout to prevent hanging requests
	client.SetTimeout(120 * time.Second)

	// Default to OpenAI compatible endpoint if not specified
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	endpoint := baseURL + "/chat/completions"

	return &OpenAIClient{
		client:   client,
		model:    cfg.Model,
		endpoint: endpoint,
	}
}

// Model returns the model name being used.
func (c *OpenAIClient) Model() string {
	return c.model
}

// OpenAI-compatible Chat Completion API request/response structures
type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one system/user exchange and returns the raw assistant text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: completion request; ImageData attaches a page image when set.
//
// Returns:
//   - string: assistant message content.
//   - error: non-nil if the API request fails.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var userContent interface{} = req.User
	if len(req.ImageData) > 0 {
		mimeType := getMIMEType(req.ImageFormat)
		base64Image := base64.StdEncoding.EncodeToString(req.ImageData)
		dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64Image)

		userContent = []interface{}{
			openAITextContent{
				Type: "text",
				Text: req.User,
			},
			openAIImageContent{
				Type: "image_url",
				ImageURL: openAIImageURL{
					URL:    dataURL,
					Detail: "auto", // Use auto for better text recognition
				},
			},
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	apiReq := openAIRequest{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: userContent},
		},
		MaxTokens: maxTokens,
	}

	var resp openAIResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(apiReq).
		SetResult(&resp).
		Post(c.endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call chat API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("chat API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("chat API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		errorMsg := fmt.Sprintf("no choices in response (status: %d)", httpResp.StatusCode())
		if len(httpResp.Body()) > 0 {
			errorMsg += fmt.Sprintf(", response body: %s", string(httpResp.Body()))
		}
		return "", fmt.Errorf("no response from chat API: %s", errorMsg)
	}

	return resp.Choices[0].Message.Content, nil
}

func getMIMEType(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// stripCodeFences removes a surrounding markdown code fence from model output.
// Models occasionally wrap JSON in ```json fences despite the prompt rules.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
