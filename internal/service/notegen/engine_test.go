package notegen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-clinical-scribe-service/internal/config"
	"ai-clinical-scribe-service/internal/errs"
	llmmock "ai-clinical-scribe-service/internal/service/llm/mock"
)

func testGenCfg() config.GenerationConfig {
	return config.GenerationConfig{
		Provider:        "mock",
		Model:           "test-model",
		Temperature:     0.3,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 8192,
	}
}

func TestGenerate_ParsesMockResponse(t *testing.T) {
	adapter := llmmock.New()
	engine := New(adapter, testGenCfg())

	res, err := engine.Generate(context.Background(), "patient has a cough and fever", EncounterContext{Specialty: "family medicine"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UsedFallback {
		t.Error("mock response is valid JSON, fallback should not fire")
	}
	if res.SOAP.Subjective.ChiefComplaint == "" {
		t.Error("expected chief complaint from parsed response")
	}
	if res.Metadata.Model != "test-model" {
		t.Errorf("expected model 'test-model', got %q", res.Metadata.Model)
	}
	if res.Metadata.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", res.Metadata.Temperature)
	}
	if res.RawResponse == "" {
		t.Error("raw response must be preserved")
	}
}

func TestGenerate_PromptEmbedsContextAndTranscript(t *testing.T) {
	adapter := llmmock.New()
	engine := New(adapter, testGenCfg())

	transcript := "my knee hurts when climbing stairs"
	_, err := engine.Generate(context.Background(), transcript, EncounterContext{
		Specialty:       "orthopedics",
		EncounterType:   "follow-up",
		PatientAge:      54,
		PatientGender:   "female",
		KnownConditions: []string{"osteoarthritis"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompts := adapter.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(prompts))
	}
	p := prompts[0]
	for _, want := range []string{"orthopedics", "follow-up", "54 years old", "female", "osteoarthritis", transcript, "chiefComplaint"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerate_OptionsOverrideDefaults(t *testing.T) {
	adapter := llmmock.New()
	engine := New(adapter, testGenCfg())

	res, err := engine.Generate(context.Background(), "transcript", EncounterContext{}, &Options{
		Temperature:     0.9,
		MaxOutputTokens: 1024,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Metadata.Temperature != 0.9 {
		t.Errorf("expected overridden temperature 0.9, got %v", res.Metadata.Temperature)
	}
	if res.Metadata.MaxOutputTokens != 1024 {
		t.Errorf("expected overridden max tokens 1024, got %d", res.Metadata.MaxOutputTokens)
	}
	if res.Metadata.TopK != 40 {
		t.Errorf("unset option must keep default TopK 40, got %d", res.Metadata.TopK)
	}
}

func TestGenerate_EmptyTranscriptIsValidationError(t *testing.T) {
	engine := New(llmmock.New(), testGenCfg())

	_, err := engine.Generate(context.Background(), "", EncounterContext{}, nil)
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGenerate_AdapterErrorPropagates(t *testing.T) {
	adapter := llmmock.New()
	adapter.Err = errs.Integrationf("model unavailable")
	engine := New(adapter, testGenCfg())

	_, err := engine.Generate(context.Background(), "transcript", EncounterContext{}, nil)
	if !errors.Is(err, errs.ErrIntegration) {
		t.Errorf("expected integration error, got %v", err)
	}
}

func TestGenerate_GarbageResponseUsesFallbackNotError(t *testing.T) {
	adapter := llmmock.New()
	adapter.Response = "I could not produce structured output, sorry."
	engine := New(adapter, testGenCfg())

	res, err := engine.Generate(context.Background(), "transcript", EncounterContext{}, nil)
	if err != nil {
		t.Fatalf("parsing failures must never surface as errors, got %v", err)
	}
	if !res.UsedFallback {
		t.Error("expected fallback for unstructured response")
	}
	if res.SOAP.Plan.Treatments == nil {
		t.Error("fallback result must be normalized")
	}
}

func TestGenerate_TokenUsageHeuristic(t *testing.T) {
	adapter := llmmock.New()
	adapter.Response = strings.Repeat("x", 401) // ceil(401/4) = 101
	engine := New(adapter, testGenCfg())

	res, err := engine.Generate(context.Background(), "t", EncounterContext{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Metadata.TokenUsage.Output != 101 {
		t.Errorf("expected output estimate 101, got %d", res.Metadata.TokenUsage.Output)
	}
	if res.Metadata.TokenUsage.Total != res.Metadata.TokenUsage.Input+res.Metadata.TokenUsage.Output {
		t.Error("total must equal input + output")
	}
	if res.Metadata.TokenUsage.Input == 0 {
		t.Error("prompt estimate must be nonzero")
	}
}
