package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"cdicheck/internal/config"
	"cdicheck/internal/domain"
	"cdicheck/internal/llm"
	"cdicheck/internal/port"
)

const anthropicVersion = "bedrock-2023-05-31"

// invoker is the slice of the Bedrock runtime API the gateway uses.
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Gateway implements port.LLMGateway over the AWS Bedrock runtime using the
// Anthropic Messages body format.
type Gateway struct {
	client        invoker
	modelID       string
	fallbackModel string
	timeout       time.Duration
	maxRetries    int
	log           zerolog.Logger
}

// NewGateway creates a Bedrock-backed gateway from config.
func NewGateway(ctx context.Context, cfg *config.BedrockConfig, log zerolog.Logger) (*Gateway, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return newGateway(bedrockruntime.NewFromConfig(awsCfg), cfg, log), nil
}

// NewGatewayWithClient creates a gateway with an injected runtime client (for testing).
func NewGatewayWithClient(client invoker, cfg *config.BedrockConfig, log zerolog.Logger) *Gateway {
	return newGateway(client, cfg, log)
}

func newGateway(client invoker, cfg *config.BedrockConfig, log zerolog.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 180 * time.Second
	}
	return &Gateway{
		client:        client,
		modelID:       cfg.ModelID,
		fallbackModel: cfg.FallbackModel,
		timeout:       timeout,
		maxRetries:    cfg.MaxRetries,
		log:           log,
	}
}

// messagesRequest is the Anthropic Messages request body.
type messagesRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
	System           string           `json:"system,omitempty"`
	Messages         []messageContent `json:"messages"`
}

type messageContent struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// messagesResponse is the Anthropic Messages response body.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Invoke sends one prompt to the model with a timeout and bounded retries.
// Retryable transport errors back off and retry; content errors fail fast.
// When the primary model rejects the request, the fallback model is tried once.
func (g *Gateway) Invoke(ctx context.Context, req port.LLMRequest) (*port.LLMResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 800
	}

	body, err := json.Marshal(messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
		System:           req.System,
		Messages: []messageContent{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: req.Prompt}}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 2 * time.Second
			g.log.Warn().
				Str("category", req.CacheCategory).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying model call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := g.invokeOnce(ctx, g.modelID, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if isModelRejection(err) && g.fallbackModel != "" {
			g.log.Warn().Err(err).Str("fallback_model", g.fallbackModel).Msg("primary model rejected request, trying fallback")
			resp, fbErr := g.invokeOnce(ctx, g.fallbackModel, body)
			if fbErr == nil {
				return resp, nil
			}
			lastErr = fbErr
		}

		if !llm.IsRetryable(lastErr) {
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("model call failed after %d attempts: %w", g.maxRetries+1, lastErr)
}

func (g *Gateway) invokeOnce(ctx context.Context, modelID string, body []byte) (*port.LLMResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.client.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ThrottlingException" {
			return nil, llm.NewRateLimitError(err)
		}
		return nil, fmt.Errorf("invoking model %s: %w", modelID, err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling model response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("empty response from model %s", modelID)
	}
	if parsed.StopReason == "max_tokens" {
		return nil, domain.ErrResponseTruncated
	}

	return &port.LLMResponse{
		Text: parsed.Content[0].Text,
		Usage: domain.UsageInfo{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
			ModelID:      modelID,
		},
	}, nil
}

// isModelRejection reports whether the provider refused the request for this
// model (bad model id, unsupported feature), the one case worth a fallback.
func isModelRejection(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ValidationException", "ResourceNotFoundException", "AccessDeniedException":
			return true
		}
	}
	return false
}
