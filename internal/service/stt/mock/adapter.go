// Package mock provides a mock STT adapter for testing without cloud
// credentials. It simulates realistic batch recognition: a scripted
// doctor-patient exchange with word timings, confidences and speaker tags.
package mock

import (
	"context"
	"strings"
	"sync"

	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/service/stt"
)

// SimulatedUtterance is one speaker turn in the scripted encounter.
type SimulatedUtterance struct {
	Text       string
	Confidence float64
	SpeakerTag int
}

// DefaultEncounter is a short primary-care exchange used when no script is
// configured.
var DefaultEncounter = []SimulatedUtterance{
	{Text: "Good morning what brings you in today", Confidence: 0.95, SpeakerTag: 1},
	{Text: "I have had a persistent cough and fever for three days", Confidence: 0.92, SpeakerTag: 2},
	{Text: "Any chest pain or shortness of breath", Confidence: 0.94, SpeakerTag: 1},
	{Text: "Some chest pain when I cough deeply", Confidence: 0.89, SpeakerTag: 2},
	{Text: "Your temperature is 38.2 and blood pressure is 120 over 80", Confidence: 0.93, SpeakerTag: 1},
	{Text: "I will prescribe amoxicillin and order a chest x-ray", Confidence: 0.95, SpeakerTag: 1},
}

// Adapter implements stt.Adapter with scripted responses.
type Adapter struct {
	mu         sync.Mutex
	Script     []SimulatedUtterance
	Err        error  // returned by both entry points when set
	JobName    string // name reported by long-running operations
	recognized int    // number of recognitions served
}

// New creates a mock adapter playing the default encounter.
func New() *Adapter {
	return &Adapter{Script: DefaultEncounter, JobName: "operations/mock-12345"}
}

// Recognize returns the scripted encounter as one result per utterance.
func (a *Adapter) Recognize(_ context.Context, req *stt.Request) (*stt.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	a.recognized++
	return a.buildResponse(req), nil
}

// StartLongRunning returns an operation that resolves immediately to the
// same scripted response.
func (a *Adapter) StartLongRunning(_ context.Context, req *stt.Request) (stt.Operation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	a.recognized++
	return &operation{name: a.JobName, resp: a.buildResponse(req)}, nil
}

// Close is a no-op.
func (a *Adapter) Close() error { return nil }

// Recognitions returns how many recognition calls were served.
func (a *Adapter) Recognitions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recognized
}

func (a *Adapter) buildResponse(req *stt.Request) *stt.Response {
	resp := &stt.Response{}
	offset := 0.0
	for _, u := range a.Script {
		tokens := strings.Fields(u.Text)
		alt := stt.Alternative{
			Transcript: u.Text,
			Confidence: u.Confidence,
			Words:      make([]models.WordInfo, 0, len(tokens)),
		}
		for _, tok := range tokens {
			tag := u.SpeakerTag
			if !req.EnableDiarization {
				tag = 0
			}
			alt.Words = append(alt.Words, models.WordInfo{
				Word:       tok,
				StartTime:  offset,
				EndTime:    offset + 0.3,
				Confidence: u.Confidence,
				SpeakerTag: tag,
			})
			offset += 0.3
		}
		offset += 0.2 // inter-utterance gap
		resp.Results = append(resp.Results, stt.Result{Alternatives: []stt.Alternative{alt}})
	}
	return resp
}

type operation struct {
	name string
	resp *stt.Response
}

func (o *operation) Name() string { return o.name }

func (o *operation) Wait(ctx context.Context) (*stt.Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return o.resp, nil
	}
}
