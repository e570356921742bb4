package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/finsight/finsight/internal/errs"
	"github.com/finsight/finsight/internal/logger"
)

// Config holds the connection settings for the Gemini API.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// GeminiGenerator implements Generator against the Gemini generateContent
// API. This is the only type in the module that makes external API calls.
type GeminiGenerator struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

// NewGemini creates a Gemini-backed Generator. Zero config fields fall
// back to defaults.
func NewGemini(cfg Config, log *logger.Logger) *GeminiGenerator {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-lite"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Global()
	}
	return &GeminiGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Generate asks the model for a short business-analyst reading of the
// result summary.
func (g *GeminiGenerator) Generate(ctx context.Context, question, resultSummary string) (string, error) {
	prompt := fmt.Sprintf(
		"You are a financial data analyst reviewing SAP accounting exports.\n"+
			"The user asked: %q\n\nQuery result summary:\n%s\n\n"+
			"Give a concise 2-3 sentence interpretation of what this result means for the business. "+
			"Plain prose, no markdown.", question, resultSummary)

	text, err := g.call(ctx, prompt)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (g *GeminiGenerator) call(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.cfg.Endpoint, g.cfg.Model, g.cfg.APIKey)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnavailable, "failed to marshal insight request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnavailable, "failed to build insight request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnavailable, "insight API request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnavailable, "failed to read insight response", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", errs.New(errs.ErrKindUnavailable, "insight API quota exhausted")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errs.New(errs.ErrKindUnavailable,
			fmt.Sprintf("insight API returned %d", resp.StatusCode))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errs.Wrap(errs.ErrKindUnavailable, "failed to parse insight response", err)
	}
	if parsed.Error != nil {
		return "", errs.New(errs.ErrKindUnavailable,
			fmt.Sprintf("insight API error %d: %s", parsed.Error.Code, parsed.Error.Message))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errs.New(errs.ErrKindUnavailable, "insight API returned empty response")
	}

	g.log.With().Str("model", g.cfg.Model).Logger().Debug("insight generated")
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
