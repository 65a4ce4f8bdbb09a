// --- deneme-server/extraction/claude.go ---
package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// ClaudeClient talks to the Anthropic Messages API. It handles both PDF
// analysis and plain text completions used elsewhere (recommendation text,
// study plan schedules, search keywords).
type ClaudeClient struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

func NewClaudeClient(apiKey, model string, maxTokens int) *ClaudeClient {
	return &ClaudeClient{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		baseURL:    anthropicBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Enabled reports whether an API key is configured. Callers fall back to
// local-only behavior when it is not.
func (c *ClaudeClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// SetBaseURL points the client at a different messages endpoint, such as
// an API gateway or a test server.
func (c *ClaudeClient) SetBaseURL(u string) {
	c.baseURL = u
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *documentSource `json:"source,omitempty"`
}

type documentSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const extractionPrompt = `Bu PDF bir öğrencinin deneme sınavı sonuç karnesi. Belgedeki tüm bilgileri çıkar ve SADECE aşağıdaki şemaya uyan geçerli bir JSON nesnesi döndür. Açıklama veya kod bloğu işareti ekleme.

{
  "student_info": {"name": "", "school": "", "grade": "", "class_section": ""},
  "exam_info": {"exam_name": "", "exam_date": "YYYY-MM-DD", "booklet_type": "", "exam_number": null},
  "overall": {"total_questions": 0, "total_correct": 0, "total_wrong": 0, "total_blank": 0, "net_score": 0, "net_percentage": 0, "class_rank": null, "class_total": null, "school_rank": null, "school_total": null, "class_avg": null, "school_avg": null},
  "subjects": {"Matematik": {"total_questions": 0, "correct": 0, "wrong": 0, "blank": 0, "net_score": 0, "net_percentage": 0, "class_avg": null, "school_avg": null}},
  "learning_outcomes": [{"subject_name": "", "category": "", "subcategory": "", "outcome_description": "", "total_questions": 0, "acquired": 0, "lost": 0, "success_rate": null}],
  "questions": [{"subject_name": "", "question_number": 1, "correct_answer": "A", "student_answer": "B", "is_correct": false, "is_blank": false, "is_canceled": false}]
}

Belgede bulunmayan alanları null bırak. Karnede soru bazlı cevap anahtarı yoksa "questions" listesini boş bırak. Sayıları metin değil sayı olarak yaz.`

// AnalyzePDF sends the PDF to Claude and parses the structured response.
func (c *ClaudeClient) AnalyzePDF(ctx context.Context, pdfData []byte) (*Record, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("claude API key not configured")
	}

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "document",
					Source: &documentSource{
						Type:      "base64",
						MediaType: "application/pdf",
						Data:      base64.StdEncoding.EncodeToString(pdfData),
					},
				},
				{Type: "text", Text: extractionPrompt},
			},
		}},
	}

	raw, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &rec); err != nil {
		return nil, fmt.Errorf("claude returned malformed JSON: %w", err)
	}
	if rec.Subjects == nil {
		rec.Subjects = make(map[string]SubjectScore)
	}
	return &rec, nil
}

// Complete sends a plain text prompt and returns the text of the reply.
func (c *ClaudeClient) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("claude API key not configured")
	}
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: prompt}},
		}},
	}
	return c.send(ctx, req)
}

func (c *ClaudeClient) send(ctx context.Context, req messagesRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("claude API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read claude response: %w", err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode claude response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		logrus.WithField("status", resp.StatusCode).Warnf("claude API error: %s", msg)
		return "", fmt.Errorf("claude API returned status %d: %s", resp.StatusCode, msg)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("claude response contained no text content")
	}
	return sb.String(), nil
}

// StripCodeFences removes a surrounding markdown code fence, which the model
// sometimes adds despite instructions not to.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
