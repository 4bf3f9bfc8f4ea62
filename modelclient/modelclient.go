// Package modelclient implements the two model operations the pipeline
// needs — embed and chat — on top of asyncclient's Future-returning POST,
// following the request/response shapes of an OpenAI-compatible API.
package modelclient

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/toyinlola/commitgroup/asyncclient"
)

// maxEmbedInputChars is the truncation bound for embedding inputs.
const maxEmbedInputChars = 16000

// fallbackCommitMessage is returned by Chat when the response can't be
// parsed into a usable message.
const fallbackCommitMessage = "update code"

// commitMessageSystemPrompt is the fixed system message for chat requests:
// a short commit message, conventional-commit prefix optional, message only.
const commitMessageSystemPrompt = "You generate a short, single-line git commit message for the given diff. " +
	"A conventional-commit type prefix (feat:, fix:, refactor:, ...) is optional. " +
	"Return only the commit message, with no surrounding quotes or explanation."

// Config names the endpoint, model names, and credential used for every
// request this client issues.
type Config struct {
	Host           string
	EmbeddingModel string
	ChatModel      string
	APIKey         string
	MaxTokens      int
	Temperature    float64
}

// Client issues embed/chat requests over an asyncclient.Client.
type Client struct {
	http   *asyncclient.Client
	cfg    Config
	logger *slog.Logger
}

// New constructs a Client bound to the given asyncclient.Client and
// endpoint configuration.
func New(http *asyncclient.Client, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: http, cfg: cfg, logger: logger}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + c.cfg.APIKey,
	}
}

// EmbedCall is an in-flight embed request. The Pipeline submits many of
// these (one per sub-hunk), drives the asyncclient.Client's RunLoop once,
// then calls Result on each in submission order (§4.8 step 3).
type EmbedCall struct {
	future *asyncclient.Future
	logger *slog.Logger
}

// truncateEmbedInput enforces the §4.5 16,000-character input bound.
func truncateEmbedInput(text string) string {
	if len(text) > maxEmbedInputChars {
		return text[:maxEmbedInputChars]
	}
	return text
}

// EmbedAsync truncates text to maxEmbedInputChars and submits an embedding
// request, returning immediately with a handle to its eventual result.
func (c *Client) EmbedAsync(text string) *EmbedCall {
	text = truncateEmbedInput(text)
	body, err := json.Marshal(embedRequest{Model: c.cfg.EmbeddingModel, Input: text})
	if err != nil {
		c.logger.Warn("embed request marshal failed, submitting anyway will not occur", "error", err)
		return &EmbedCall{future: nil, logger: c.logger}
	}
	future := c.http.PostAsync(c.cfg.Host, "/embeddings", body, c.authHeaders())
	return &EmbedCall{future: future, logger: c.logger}
}

// Result blocks until the request completes (normally already true once
// RunLoop has returned) and extracts data[0].embedding. A malformed or
// erroring response falls back to a nil vector rather than failing the
// whole run (§4.5/§7: ModelResponse errors are localized).
func (e *EmbedCall) Result() asyncmodelEmbedding {
	if e.future == nil {
		return nil
	}
	resp, _, err := e.future.Wait()
	if err != nil {
		e.logger.Warn("embed request failed, falling back to empty vector", "error", err)
		return nil
	}
	if resp.StatusCode != 200 {
		e.logger.Warn("embed request returned non-200", "status", resp.StatusCode)
		return nil
	}

	var parsed embedResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		e.logger.Warn("embed response not valid JSON, falling back to empty vector", "error", err)
		return nil
	}
	if parsed.Error != nil || len(parsed.Data) == 0 {
		e.logger.Warn("embed response missing data, falling back to empty vector")
		return nil
	}
	return parsed.Data[0].Embedding
}

// asyncmodelEmbedding is a local alias kept distinct from diffmodel's
// EmbeddingVector so this package has no import-cycle dependency on the
// pipeline's choice of vector type; the Pipeline converts at the boundary.
type asyncmodelEmbedding = []float32

// ChatCall is an in-flight commit-message request, mirroring EmbedCall's
// submit/drive/collect shape.
type ChatCall struct {
	future *asyncclient.Future
	logger *slog.Logger
}

// Future exposes the underlying asyncclient.Future so a caller that wants
// to distinguish a transient transport failure (for retry.Do) from a
// malformed response (which Chat/Result already fall back on) can inspect
// the raw outcome.
func (cc *ChatCall) Future() *asyncclient.Future { return cc.future }

// ChatAsync submits a commit-message request built from diffContext and
// returns immediately with a handle to its eventual result.
func (c *Client) ChatAsync(diffContext string) *ChatCall {
	reqBody := chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: commitMessageSystemPrompt},
			{Role: "user", Content: diffContext},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		c.logger.Warn("chat request marshal failed, submitting anyway will not occur", "error", err)
		return &ChatCall{future: nil, logger: c.logger}
	}
	future := c.http.PostAsync(c.cfg.Host, "/chat/completions", body, c.authHeaders())
	return &ChatCall{future: future, logger: c.logger}
}

// Chat is a synchronous convenience wrapper for callers that want a single
// request-response round trip without separately driving RunLoop; it
// submits, waits, and extracts in one call.
func (c *Client) Chat(diffContext string) string {
	call := c.ChatAsync(diffContext)
	c.http.RunLoop()
	return call.Result()
}

// Result blocks until the request completes and extracts
// choices[0].message.content, trimming whitespace and surrounding quotes.
// Any failure to extract a usable message falls back to
// fallbackCommitMessage (§4.5).
func (cc *ChatCall) Result() string {
	if cc.future == nil {
		return fallbackCommitMessage
	}
	resp, _, err := cc.future.Wait()
	if err != nil {
		cc.logger.Warn("chat request failed, falling back", "error", err)
		return fallbackCommitMessage
	}
	if resp.StatusCode != 200 {
		cc.logger.Warn("chat request returned non-200, falling back", "status", resp.StatusCode)
		return fallbackCommitMessage
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		cc.logger.Warn("chat response not valid JSON, falling back", "error", err)
		return fallbackCommitMessage
	}
	if parsed.Error != nil || len(parsed.Choices) == 0 {
		cc.logger.Warn("chat response missing choices, falling back")
		return fallbackCommitMessage
	}

	msg := extractMessage(parsed.Choices[0].Message.Content)
	if msg == "" {
		return fallbackCommitMessage
	}
	return msg
}

func extractMessage(content string) string {
	msg := strings.TrimSpace(content)
	msg = strings.Trim(msg, `"'`)
	return strings.TrimSpace(msg)
}

// FormatDiffContext renders a patch text into the `Insertion:`/`Deletion:`
// prefixed form the chat prompt's user message expects, per §4.8 step 6.
func FormatDiffContext(patchText string) string {
	lines := strings.Split(patchText, "\n")
	var b strings.Builder
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			fmt.Fprintf(&b, "Insertion: %s\n", line[1:])
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			fmt.Fprintf(&b, "Deletion: %s\n", line[1:])
		default:
			fmt.Fprintf(&b, "%s\n", line)
		}
	}
	return b.String()
}
