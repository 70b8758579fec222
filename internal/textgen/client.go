package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Finish reason codes returned by the generation API when output is withheld.
const (
	FinishReasonSafety     = 2
	FinishReasonRecitation = 3
	FinishReasonOther      = 4
)

// Fixed user-facing messages for withheld output. The bot relays these texts
// verbatim instead of fabricating content.
const (
	MsgBlockedSafety     = "Sorry, I cannot respond to that request for safety reasons."
	MsgBlockedRecitation = "Sorry, I cannot reproduce that content."
	MsgBlockedOther      = "Sorry, I was unable to generate a response to that request."
	MsgUnavailable       = "Sorry, the assistant is temporarily unavailable. Please try again later."
)

// PolicyBlockError marks a policy rejection as opposed to a transport
// failure. Callers must not persist any content when they see it.
type PolicyBlockError struct {
	Reason  int
	Message string
}

func (e *PolicyBlockError) Error() string {
	return fmt.Sprintf("generation blocked (finish_reason=%d)", e.Reason)
}

func blockMessage(reason int) string {
	switch reason {
	case FinishReasonSafety:
		return MsgBlockedSafety
	case FinishReasonRecitation:
		return MsgBlockedRecitation
	default:
		return MsgBlockedOther
	}
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	HistorySize int
}

// Options override per-request generation parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
}

type message struct {
	Role string
	Text string
}

// Client calls the external text-generation API and keeps a bounded
// per-user conversation history for multi-turn chat.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	timeout     time.Duration
	temperature float64
	maxTokens   int
	historySize int
	httpClient  *http.Client
	logger      *slog.Logger

	mu        sync.Mutex
	histories map[int64][]message
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	temperature := config.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	historySize := config.HistorySize
	if historySize <= 0 {
		historySize = 20
	}

	return &Client{
		baseURL:     config.BaseURL,
		apiKey:      config.APIKey,
		model:       config.Model,
		timeout:     timeout,
		temperature: temperature,
		maxTokens:   maxTokens,
		historySize: historySize,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
		histories:   make(map[int64][]message),
	}
}

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type generateRequest struct {
	Contents         []wireContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      wireContent `json:"content"`
		FinishReason int         `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces a conversational reply for the user's prompt, feeding
// back the user's recent history. The history is only extended on success.
func (c *Client) Generate(ctx context.Context, userID int64, prompt string, opts *Options) (string, error) {
	history := c.historyFor(userID)

	contents := make([]wireContent, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, wireContent{Role: m.Role, Parts: []wirePart{{Text: m.Text}}})
	}
	contents = append(contents, wireContent{Role: "user", Parts: []wirePart{{Text: prompt}}})

	temperature := c.temperature
	maxTokens := c.maxTokens
	if opts != nil {
		if opts.Temperature > 0 {
			temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
	}

	text, err := c.generate(ctx, contents, temperature, maxTokens)
	if err != nil {
		return "", err
	}

	c.appendHistory(userID, message{Role: "user", Text: prompt}, message{Role: "model", Text: text})
	return text, nil
}

// Summarize condenses text at a low temperature with a larger output limit.
// It deliberately bypasses conversation history.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	prompt := "Summarize the following reports into one concise, well-structured summary. " +
		"Keep the key facts, decisions and figures:\n\n" + text

	contents := []wireContent{{Role: "user", Parts: []wirePart{{Text: prompt}}}}
	return c.generate(ctx, contents, 0.3, 2048)
}

func (c *Client) generate(ctx context.Context, contents []wireContent, temperature float64, maxTokens int) (string, error) {
	reqBody := generateRequest{Contents: contents}
	reqBody.GenerationConfig.Temperature = temperature
	reqBody.GenerationConfig.MaxOutputTokens = maxTokens

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("generation request failed", "error", err, "model", c.model)
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("generation API returned error status", "status", resp.StatusCode, "model", c.model)
		return "", fmt.Errorf("generation API returned status %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	if genResp.Error != nil {
		return "", fmt.Errorf("generation API error %d: %s", genResp.Error.Code, genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 {
		return "", fmt.Errorf("generation API returned no candidates")
	}

	candidate := genResp.Candidates[0]
	switch candidate.FinishReason {
	case FinishReasonSafety, FinishReasonRecitation, FinishReasonOther:
		c.logger.Warn("generation blocked by policy",
			"finish_reason", candidate.FinishReason,
			"model", c.model)
		return "", &PolicyBlockError{
			Reason:  candidate.FinishReason,
			Message: blockMessage(candidate.FinishReason),
		}
	}

	if len(candidate.Content.Parts) == 0 || candidate.Content.Parts[0].Text == "" {
		return "", fmt.Errorf("generation API returned empty content")
	}
	return candidate.Content.Parts[0].Text, nil
}

func (c *Client) historyFor(userID int64) []message {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := c.histories[userID]
	out := make([]message, len(history))
	copy(out, history)
	return out
}

func (c *Client) appendHistory(userID int64, messages ...message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := append(c.histories[userID], messages...)
	if len(history) > c.historySize {
		history = history[len(history)-c.historySize:]
	}
	c.histories[userID] = history
}

// ClearHistory resets a user's conversation.
func (c *Client) ClearHistory(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.histories, userID)
}
