package transcription

import (
	"strings"

	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/service/medterms"
	"ai-clinical-scribe-service/internal/service/scoring"
	"ai-clinical-scribe-service/internal/service/stt"
)

const maxAlternativeTranscripts = 3

// processResponse flattens a recognition response into a persisted result.
// Result blocks are concatenated in engine-return order. An empty response
// is a validation failure, not a completed empty transcript.
func processResponse(resp *stt.Response) (*models.TranscriptionResult, error) {
	if resp == nil || len(resp.Results) == 0 {
		return nil, errs.Validationf("no transcription results returned by recognition engine")
	}

	var (
		parts        []string
		words        []models.WordInfo
		alternatives []string
		confSum      float64
		confCount    int
	)
	for _, res := range resp.Results {
		if len(res.Alternatives) == 0 {
			continue
		}
		top := res.Alternatives[0]
		if t := strings.TrimSpace(top.Transcript); t != "" {
			parts = append(parts, t)
		}
		words = append(words, top.Words...)
		confSum += top.Confidence
		confCount++

		for _, alt := range res.Alternatives[1:] {
			if len(alternatives) >= maxAlternativeTranscripts {
				break
			}
			if t := strings.TrimSpace(alt.Transcript); t != "" {
				alternatives = append(alternatives, t)
			}
		}
	}
	if confCount == 0 {
		return nil, errs.Validationf("no transcription results returned by recognition engine")
	}

	result := &models.TranscriptionResult{
		Transcript:           strings.Join(parts, " "),
		Words:                words,
		Alternatives:         alternatives,
		Confidence:           confSum / float64(confCount),
		WordCount:            len(words),
		SpeakerCount:         distinctSpeakers(words),
		DurationSeconds:      lastWordEnd(words),
		QualityMetrics:       scoring.AudioQuality(words),
		MedicalTermsDetected: medterms.Detect(words),
	}
	if result.Alternatives == nil {
		result.Alternatives = []string{}
	}
	if result.Words == nil {
		result.Words = []models.WordInfo{}
	}
	if result.MedicalTermsDetected == nil {
		result.MedicalTermsDetected = []models.DetectedTerm{}
	}
	return result, nil
}

func distinctSpeakers(words []models.WordInfo) int {
	seen := map[int]struct{}{}
	for _, w := range words {
		if w.SpeakerTag > 0 {
			seen[w.SpeakerTag] = struct{}{}
		}
	}
	return len(seen)
}

func lastWordEnd(words []models.WordInfo) float64 {
	var end float64
	for _, w := range words {
		if w.EndTime > end {
			end = w.EndTime
		}
	}
	return end
}
