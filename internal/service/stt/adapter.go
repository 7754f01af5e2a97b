// Package stt defines the interface for batch speech-to-text adapters.
package stt

import (
	"context"

	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/service/audioformat"
)

// Request describes one recognition call.
type Request struct {
	Audio             []byte
	Encoding          audioformat.Encoding
	SampleRateHertz   int
	LanguageCode      string
	Model             string
	MaxAlternatives   int
	EnableDiarization bool
	MinSpeakers       int
	MaxSpeakers       int
	BoostPhrases      []string
	Boost             float64
}

// Alternative is one transcript hypothesis for a result.
type Alternative struct {
	Transcript string
	Confidence float64
	Words      []models.WordInfo
}

// Result is one recognition result (typically one per utterance block).
type Result struct {
	Alternatives []Alternative
}

// Response is the engine's full answer, results in engine-return order.
type Response struct {
	Results []Result
}

// Operation is a handle on a long-running recognition job.
type Operation interface {
	// Name returns the provider's job identifier.
	Name() string

	// Wait blocks until the job finishes or ctx expires.
	Wait(ctx context.Context) (*Response, error)
}

// Adapter defines the interface for speech recognition providers.
type Adapter interface {
	// Recognize performs synchronous recognition, for short audio (≤ ~60s).
	Recognize(ctx context.Context, req *Request) (*Response, error)

	// StartLongRunning starts an asynchronous recognition job, for long
	// audio, and returns a pollable operation handle.
	StartLongRunning(ctx context.Context, req *Request) (Operation, error)

	// Close releases provider resources.
	Close() error
}
