// Package notegen builds structured prompts from encounter transcripts,
// invokes the LLM adapter and parses the response into the canonical SOAP
// schema, with a regex-based fallback parser for unparseable output.
package notegen

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-clinical-scribe-service/internal/config"
	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/observability/logging"
	"ai-clinical-scribe-service/internal/observability/metrics"
	"ai-clinical-scribe-service/internal/service/llm"
)

// Engine generates SOAP notes from transcripts.
type Engine struct {
	adapter llm.Adapter
	cfg     config.GenerationConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a note generation engine with the configured defaults.
func New(adapter llm.Adapter, cfg config.GenerationConfig) *Engine {
	return &Engine{
		adapter: adapter,
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("notegen"),
	}
}

// Options override the configured sampling defaults per call. Zero values
// mean "use the configured default".
type Options struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// Result is the outcome of one generation.
type Result struct {
	SOAP         models.SOAPNote
	Metadata     models.AIMetadata
	RawResponse  string
	UsedFallback bool
}

// Generate builds the prompt, invokes the model and parses the response.
// Parsing never fails; only adapter errors and empty input are surfaced.
func (e *Engine) Generate(ctx context.Context, transcript string, ec EncounterContext, opts *Options) (*Result, error) {
	if transcript == "" {
		return nil, errs.Validationf("transcript text is required for note generation")
	}

	params := e.params(opts)
	prompt := BuildPrompt(transcript, ec)
	start := time.Now()

	e.metrics.GenerationRequests.Inc()
	raw, err := e.adapter.Generate(ctx, prompt, params)
	if err != nil {
		e.metrics.GenerationFailures.Inc()
		return nil, err
	}
	elapsed := time.Since(start)
	e.metrics.GenerationLatency.Observe(elapsed.Seconds())

	soap, usedFallback := ParseResponse(raw)
	if usedFallback {
		e.metrics.GenerationFallbacks.Inc()
		e.logger.Warn().
			Str("model", params.Model).
			Int("responseChars", len(raw)).
			Msg("JSON parse failed, used section-header fallback")
	}

	// Token usage is a character-count estimate (ceil(chars/4)), not a
	// billing-accurate figure from the provider.
	usage := models.TokenUsage{
		Input:  estimateTokens(prompt),
		Output: estimateTokens(raw),
	}
	usage.Total = usage.Input + usage.Output
	e.metrics.GenerationTokens.Observe(float64(usage.Total))

	return &Result{
		SOAP: soap,
		Metadata: models.AIMetadata{
			Model:            params.Model,
			Temperature:      params.Temperature,
			TopP:             params.TopP,
			TopK:             params.TopK,
			MaxOutputTokens:  params.MaxOutputTokens,
			TokenUsage:       usage,
			ProcessingTimeMs: elapsed.Milliseconds(),
		},
		RawResponse:  raw,
		UsedFallback: usedFallback,
	}, nil
}

func (e *Engine) params(opts *Options) llm.Params {
	p := llm.Params{
		Model:           e.cfg.Model,
		Temperature:     e.cfg.Temperature,
		TopP:            e.cfg.TopP,
		TopK:            e.cfg.TopK,
		MaxOutputTokens: e.cfg.MaxOutputTokens,
	}
	if opts == nil {
		return p
	}
	if opts.Temperature > 0 {
		p.Temperature = opts.Temperature
	}
	if opts.TopP > 0 {
		p.TopP = opts.TopP
	}
	if opts.TopK > 0 {
		p.TopK = opts.TopK
	}
	if opts.MaxOutputTokens > 0 {
		p.MaxOutputTokens = opts.MaxOutputTokens
	}
	return p
}

func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
