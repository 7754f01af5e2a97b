// Package google provides a Google Cloud Speech-to-Text batch adapter.
package google

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/service/stt"
)

// Adapter implements stt.Adapter using the Google Cloud Speech batch APIs:
// Recognize for short audio and LongRunningRecognize for long audio.
type Adapter struct {
	client *speech.Client
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Adapter{client: c}, nil
}

// Recognize performs synchronous recognition.
func (a *Adapter) Recognize(ctx context.Context, req *stt.Request) (*stt.Response, error) {
	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: buildConfig(req),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio},
		},
	})
	if err != nil {
		return nil, classify("recognize", err)
	}
	return convertResults(resp.Results), nil
}

// StartLongRunning starts an asynchronous recognition job.
func (a *Adapter) StartLongRunning(ctx context.Context, req *stt.Request) (stt.Operation, error) {
	op, err := a.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: buildConfig(req),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio},
		},
	})
	if err != nil {
		return nil, classify("long running recognize", err)
	}
	return &operation{op: op}, nil
}

// Close releases the underlying client connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// operation wraps the generated long-running operation handle.
type operation struct {
	op *speech.LongRunningRecognizeOperation
}

func (o *operation) Name() string { return o.op.Name() }

func (o *operation) Wait(ctx context.Context) (*stt.Response, error) {
	resp, err := o.op.Wait(ctx)
	if err != nil {
		return nil, classify("wait for recognition", err)
	}
	return convertResults(resp.Results), nil
}

func buildConfig(req *stt.Request) *speechpb.RecognitionConfig {
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_AudioEncoding(speechpb.RecognitionConfig_AudioEncoding_value[string(req.Encoding)]),
		SampleRateHertz:            int32(req.SampleRateHertz),
		LanguageCode:               req.LanguageCode,
		MaxAlternatives:            int32(req.MaxAlternatives),
		EnableWordTimeOffsets:      true,
		EnableWordConfidence:       true,
		EnableAutomaticPunctuation: true,
		Model:                      req.Model,
	}
	if req.EnableDiarization {
		cfg.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          int32(req.MinSpeakers),
			MaxSpeakerCount:          int32(req.MaxSpeakers),
		}
	}
	if len(req.BoostPhrases) > 0 {
		cfg.SpeechContexts = []*speechpb.SpeechContext{
			{Phrases: req.BoostPhrases, Boost: float32(req.Boost)},
		}
	}
	return cfg
}

func convertResults(results []*speechpb.SpeechRecognitionResult) *stt.Response {
	out := &stt.Response{Results: make([]stt.Result, 0, len(results))}
	for _, r := range results {
		res := stt.Result{Alternatives: make([]stt.Alternative, 0, len(r.Alternatives))}
		for _, alt := range r.Alternatives {
			a := stt.Alternative{
				Transcript: alt.Transcript,
				Confidence: float64(alt.Confidence),
				Words:      make([]models.WordInfo, 0, len(alt.Words)),
			}
			for _, w := range alt.Words {
				a.Words = append(a.Words, models.WordInfo{
					Word:       w.Word,
					StartTime:  w.StartTime.AsDuration().Seconds(),
					EndTime:    w.EndTime.AsDuration().Seconds(),
					Confidence: float64(w.Confidence),
					SpeakerTag: int(w.SpeakerTag),
				})
			}
			res.Alternatives = append(res.Alternatives, a)
		}
		out.Results = append(out.Results, res)
	}
	return out
}

// classify maps engine gRPC errors into the service error taxonomy. Bad
// request configuration surfaces as validation, everything else as an
// integration failure.
func classify(op string, err error) error {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.InvalidArgument:
			return errs.Validationf("%s: %s", op, s.Message())
		case codes.DeadlineExceeded, codes.Canceled:
			return errs.Integrationf("%s: timed out: %s", op, s.Message())
		}
	}
	return errs.Integration(op, err)
}
