package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/configuration"
	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 5,
			TotalTokenCount:      17,
		},
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		cfg := configuration.DefaultConfig()
		cfg.Provider = "mystery"
		cfg.APIKey = "key"
		_, err := New(context.Background(), cfg)
		assert.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
	})

	t.Run("missing credential", func(t *testing.T) {
		cfg := configuration.DefaultConfig()
		_, err := New(context.Background(), cfg)
		assert.ErrorIs(t, err, llmerrors.ErrMissingCredential)
	})
}

func TestGeminiHandle(t *testing.T) {
	fake := &fakeModels{resp: textResponse("  **Score:** 7 out of 10  ")}
	g := newGemini(fake, configuration.DefaultConfig())

	resp, err := g.Handle(context.Background(), &transport.Request{
		Operation:         transport.OpOpinion,
		SystemInstruction: "You are a strict examiner.",
		Prompt:            "Grade this answer.",
	})
	require.NoError(t, err)

	assert.Equal(t, "**Score:** 7 out of 10", resp.Content)
	assert.Equal(t, configuration.DefaultModel, fake.model)
	assert.Equal(t, string(genai.FinishReasonStop), resp.FinishReason)
	assert.Equal(t, int64(17), resp.Usage.TotalTokens)
	require.NotNil(t, fake.config.SystemInstruction)
	assert.Empty(t, fake.config.ResponseMIMEType)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, configuration.DefaultTemperature, *fake.config.Temperature, 1e-6)
}

func TestGeminiHandleJSONAndAttachments(t *testing.T) {
	fake := &fakeModels{resp: textResponse(`[{"questionNumber":"1"}]`)}
	g := newGemini(fake, configuration.DefaultConfig())
	temp := float32(0)

	_, err := g.Handle(context.Background(), &transport.Request{
		Model:        "custom-model",
		Prompt:       "Extract the text.",
		JSONResponse: true,
		Temperature:  &temp,
		Attachments:  []transport.Attachment{{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "custom-model", fake.model)
	assert.Equal(t, JSONMIMEType, fake.config.ResponseMIMEType)
	assert.Zero(t, *fake.config.Temperature)
	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Equal(t, "Extract the text.", parts[1].Text)
}

func TestGeminiHandleErrors(t *testing.T) {
	tests := []struct {
		name      string
		fake      *fakeModels
		check     func(t *testing.T, err error)
		retryable bool
	}{
		{
			name: "empty text",
			fake: &fakeModels{resp: textResponse("   ")},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, llmerrors.ErrEmptyResponse)
			},
		},
		{
			name: "rate limited",
			fake: &fakeModels{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "slow down"}},
			check: func(t *testing.T, err error) {
				var pe *llmerrors.ProviderError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, llmerrors.ErrorTypeRateLimit, pe.Type)
			},
			retryable: true,
		},
		{
			name: "quota exhausted",
			fake: &fakeModels{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded for project"}},
			check: func(t *testing.T, err error) {
				assert.Equal(t, llmerrors.ErrorTypeQuota, llmerrors.Classify(err))
			},
		},
		{
			name: "bad key",
			fake: &fakeModels{err: genai.APIError{Code: 400, Status: "UNAUTHENTICATED", Message: "API key not valid"}},
			check: func(t *testing.T, err error) {
				assert.Equal(t, llmerrors.ErrorTypeAuth, llmerrors.Classify(err))
			},
		},
		{
			name: "server error",
			fake: &fakeModels{err: genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded"}},
			check: func(t *testing.T, err error) {
				assert.Equal(t, llmerrors.ErrorTypeProvider, llmerrors.Classify(err))
			},
			retryable: true,
		},
		{
			name: "plain error passes through",
			fake: &fakeModels{err: errors.New("boom")},
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "boom")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGemini(tt.fake, configuration.DefaultConfig())
			_, err := g.Handle(context.Background(), &transport.Request{Prompt: "p"})
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, tt.retryable, llmerrors.IsRetryableError(err))
		})
	}
}
