// Package providers implements the core transport handlers that talk to
// hosted model APIs.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/configuration"
	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

// Supported provider identifiers.
const (
	ProviderGemini = "gemini"
)

// JSONMIMEType is the response MIME type requested for structured output.
const JSONMIMEType = "application/json"

// contentGenerator is the slice of the genai models service used here.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Gemini is a transport.Handler backed by the Gemini API.
type Gemini struct {
	models      contentGenerator
	model       string
	temperature float32
	timeout     time.Duration
	now         func() time.Time
}

// New creates the core handler for cfg.Provider.
func New(ctx context.Context, cfg *configuration.Config) (*Gemini, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini, "google":
	default:
		return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: set %s", llmerrors.ErrMissingCredential, cfg.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(models contentGenerator, cfg *configuration.Config) *Gemini {
	return &Gemini{
		models:      models,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		now:         time.Now,
	}
}

// Handle sends req to the model and returns its text.
func (g *Gemini) Handle(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = g.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = g.model
	}

	start := g.now()
	resp, err := g.models.GenerateContent(ctx, model, buildContents(req), g.buildConfig(req))
	if err != nil {
		return nil, mapError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: model %s", llmerrors.ErrEmptyResponse, model)
	}

	out := &transport.Response{
		Content: text,
		Model:   model,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = transport.Usage{
			PromptTokens:     int64(u.PromptTokenCount),
			CompletionTokens: int64(u.CandidatesTokenCount),
			TotalTokens:      int64(u.TotalTokenCount),
		}
	}
	out.Usage.LatencyMs = g.now().Sub(start).Milliseconds()
	return out, nil
}

func (g *Gemini) buildConfig(req *transport.Request) *genai.GenerateContentConfig {
	temp := g.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.JSONResponse {
		cfg.ResponseMIMEType = JSONMIMEType
	}
	return cfg
}

// buildContents places attachments before the prompt text in a single user
// turn.
func buildContents(req *transport.Request) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Attachments)+1)
	for _, a := range req.Attachments {
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// mapError converts genai API failures into ProviderError so the retry
// middleware can classify them. Other errors pass through unchanged.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return providerError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return providerError(*apiErrPtr)
	}
	return err
}

func providerError(apiErr genai.APIError) error {
	errType := llmerrors.TypeForStatus(apiErr.Code)
	status := strings.ToUpper(apiErr.Status)
	switch {
	case status == "RESOURCE_EXHAUSTED" && strings.Contains(strings.ToLower(apiErr.Message), "quota"):
		errType = llmerrors.ErrorTypeQuota
	case status == "UNAUTHENTICATED":
		errType = llmerrors.ErrorTypeAuth
	case status == "PERMISSION_DENIED":
		errType = llmerrors.ErrorTypePermission
	}
	return &llmerrors.ProviderError{
		Provider:   ProviderGemini,
		StatusCode: apiErr.Code,
		Message:    apiErr.Message,
		Code:       apiErr.Status,
		Type:       errType,
	}
}
