package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdicheck/internal/config"
	"cdicheck/internal/domain"
	"cdicheck/internal/llm"
	"cdicheck/internal/port"
)

type fakeInvoker struct {
	calls    []string // model IDs in call order
	respond  func(modelID string, body []byte) (*bedrockruntime.InvokeModelOutput, error)
	lastBody []byte
}

func (f *fakeInvoker) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.calls = append(f.calls, *params.ModelId)
	f.lastBody = params.Body
	return f.respond(*params.ModelId, params.Body)
}

type fakeAPIError struct{ code string }

func (e *fakeAPIError) Error() string                 { return e.code }
func (e *fakeAPIError) ErrorCode() string             { return e.code }
func (e *fakeAPIError) ErrorMessage() string          { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

func okOutput(text string, stopReason string) *bedrockruntime.InvokeModelOutput {
	raw, _ := json.Marshal(map[string]any{
		"content":     []map[string]string{{"type": "text", "text": text}},
		"stop_reason": stopReason,
		"usage":       map[string]int{"input_tokens": 12, "output_tokens": 7},
	})
	return &bedrockruntime.InvokeModelOutput{Body: raw}
}

func testConfig() *config.BedrockConfig {
	return &config.BedrockConfig{
		ModelID:       "primary-model",
		FallbackModel: "fallback-model",
		Timeout:       5 * time.Second,
		MaxRetries:    2,
	}
}

func TestInvokeParsesResponse(t *testing.T) {
	fake := &fakeInvoker{respond: func(string, []byte) (*bedrockruntime.InvokeModelOutput, error) {
		return okOutput(`{"ok": true}`, "end_turn"), nil
	}}
	g := NewGatewayWithClient(fake, testConfig(), zerolog.Nop())

	resp, err := g.Invoke(context.Background(), port.LLMRequest{
		Prompt: "hello", System: "sys", MaxTokens: 400, Temperature: 0.1,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, resp.Text)
	assert.Equal(t, domain.UsageInfo{InputTokens: 12, OutputTokens: 7, ModelID: "primary-model"}, resp.Usage)

	var sent messagesRequest
	require.NoError(t, json.Unmarshal(fake.lastBody, &sent))
	assert.Equal(t, anthropicVersion, sent.AnthropicVersion)
	assert.Equal(t, 400, sent.MaxTokens)
	assert.Equal(t, "sys", sent.System)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "hello", sent.Messages[0].Content[0].Text)
}

func TestInvokeTruncatedResponse(t *testing.T) {
	fake := &fakeInvoker{respond: func(string, []byte) (*bedrockruntime.InvokeModelOutput, error) {
		return okOutput("partial", "max_tokens"), nil
	}}
	cfg := testConfig()
	cfg.MaxRetries = 0
	g := NewGatewayWithClient(fake, cfg, zerolog.Nop())

	_, err := g.Invoke(context.Background(), port.LLMRequest{Prompt: "p"})

	assert.ErrorIs(t, err, domain.ErrResponseTruncated)
}

func TestInvokeRetriesThrottling(t *testing.T) {
	n := 0
	fake := &fakeInvoker{respond: func(string, []byte) (*bedrockruntime.InvokeModelOutput, error) {
		n++
		if n == 1 {
			return nil, &fakeAPIError{code: "ThrottlingException"}
		}
		return okOutput("ok", "end_turn"), nil
	}}
	g := NewGatewayWithClient(fake, testConfig(), zerolog.Nop())

	resp, err := g.Invoke(context.Background(), port.LLMRequest{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 2, n)
}

func TestInvokeFallsBackOnModelRejection(t *testing.T) {
	fake := &fakeInvoker{respond: func(modelID string, _ []byte) (*bedrockruntime.InvokeModelOutput, error) {
		if modelID == "primary-model" {
			return nil, &fakeAPIError{code: "ValidationException"}
		}
		return okOutput("from fallback", "end_turn"), nil
	}}
	g := NewGatewayWithClient(fake, testConfig(), zerolog.Nop())

	resp, err := g.Invoke(context.Background(), port.LLMRequest{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Text)
	assert.Equal(t, "fallback-model", resp.Usage.ModelID)
	assert.Equal(t, []string{"primary-model", "fallback-model"}, fake.calls)
}

func TestInvokeNonRetryableFailsFast(t *testing.T) {
	n := 0
	fake := &fakeInvoker{respond: func(string, []byte) (*bedrockruntime.InvokeModelOutput, error) {
		n++
		return nil, errors.New("marshal rejected")
	}}
	g := NewGatewayWithClient(fake, testConfig(), zerolog.Nop())

	_, err := g.Invoke(context.Background(), port.LLMRequest{Prompt: "p"})

	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, llm.IsRetryable(err))
}
