// Package scoring computes confidence and quality scores for generated
// notes and audio-quality metrics for transcriptions. All heuristics here
// are deliberately simple and explainable: structural presence is what can
// be verified without ground truth.
package scoring

import (
	"strings"

	"ai-clinical-scribe-service/internal/models"
	"ai-clinical-scribe-service/internal/service/medterms"
)

const (
	// lowConfidenceThreshold marks a recognized word as unreliable.
	lowConfidenceThreshold = 0.6

	// silenceGapSeconds is the inter-word gap counted as silence.
	silenceGapSeconds = 0.5
)

// Confidence computes the 0–1 confidence score for a generated note against
// its source transcript.
//
// The score is a weighted blend divided by the number of factors that fired,
// not a fixed-denominator average: adding a factor changes both numerator
// and denominator. An empty note scores exactly 0.5, since absence of signal
// is not evidence of low quality.
func Confidence(note models.SOAPNote, transcript string) float64 {
	score := 0.0
	factors := 0

	if note.Subjective.ChiefComplaint != "" {
		score += 0.2
		factors++
	}
	if note.Subjective.HistoryOfPresentIllness != "" {
		score += 0.2
		factors++
	}
	if note.Assessment.ClinicalImpression != "" {
		score += 0.3
		factors++
	}
	if note.HasPlan() {
		score += 0.2
		factors++
	}

	termsInNote := medterms.CountIn(noteText(note))
	termsInTranscript := medterms.CountIn(transcript)
	if termsInNote > 0 && termsInTranscript > 0 {
		ratio := float64(termsInNote) / float64(termsInTranscript)
		if ratio > 1 {
			ratio = 1
		}
		score += 0.1 * ratio
		factors++
	}

	if factors == 0 {
		return 0.5
	}
	return clamp01(score / float64(factors))
}

// AssessQuality computes the four quality axes and their average.
func AssessQuality(note models.SOAPNote, transcript string) models.QualityMetrics {
	m := models.QualityMetrics{
		Completeness: completeness(note),
		Accuracy:     accuracy(note),
		Relevance:    relevance(note, transcript),
		Clarity:      clarity(note),
	}
	m.Overall = (m.Completeness + m.Accuracy + m.Relevance + m.Clarity) / 4
	return m
}

// completeness is the fraction of the four SOAP sections that carry content.
func completeness(note models.SOAPNote) float64 {
	present := 0
	if note.Subjective.ChiefComplaint != "" || note.Subjective.HistoryOfPresentIllness != "" {
		present++
	}
	if note.Objective.PhysicalExam != "" || note.Objective.VitalSigns != (models.VitalSigns{}) {
		present++
	}
	if note.Assessment.ClinicalImpression != "" || len(note.Assessment.Diagnoses) > 0 {
		present++
	}
	if note.HasPlan() || len(note.Plan.Medications) > 0 {
		present++
	}
	return float64(present) / 4
}

// accuracy starts at 0.8 and is boosted for coded diagnoses and structured
// medications: structural presence, not semantic correctness, is what is
// verifiable without ground truth.
func accuracy(note models.SOAPNote) float64 {
	score := 0.8
	for _, d := range note.Assessment.Diagnoses {
		if d.Code != "" {
			score += 0.1
			break
		}
	}
	if len(note.Plan.Medications) > 0 {
		score += 0.1
	}
	return clamp01(score)
}

// relevance measures terminology alignment between note and transcript.
func relevance(note models.SOAPNote, transcript string) float64 {
	termsInNote := medterms.CountIn(noteText(note))
	termsInTranscript := medterms.CountIn(transcript)
	if termsInNote == 0 || termsInTranscript == 0 {
		return 0.7
	}
	ratio := float64(termsInNote) / float64(termsInTranscript)
	if ratio > 1 {
		ratio = 1
	}
	return 0.7 + 0.3*ratio
}

// clarity buckets the average narrative section length: long enough to say
// something, short enough to be readable.
func clarity(note models.SOAPNote) float64 {
	sections := []string{
		note.Subjective.HistoryOfPresentIllness,
		note.Objective.PhysicalExam,
		note.Assessment.ClinicalImpression,
		strings.Join(note.Plan.Treatments, " "),
	}
	total, counted := 0, 0
	for _, s := range sections {
		if s != "" {
			total += len(s)
			counted++
		}
	}
	if counted == 0 {
		return 0.5
	}
	avg := total / counted
	switch {
	case avg >= 50 && avg <= 500:
		return 0.9
	case avg >= 20 && avg <= 1000:
		return 0.7
	default:
		return 0.5
	}
}

// AudioQuality summarizes recognition quality from word-level output.
// Background noise is a three-bucket classification driven purely by the
// mean word confidence.
func AudioQuality(words []models.WordInfo) models.AudioQualityMetrics {
	m := models.AudioQualityMetrics{BackgroundNoiseLevel: "high"}
	if len(words) == 0 {
		return m
	}

	sum := 0.0
	low := 0
	silence := 0.0
	for i, w := range words {
		sum += w.Confidence
		if w.Confidence < lowConfidenceThreshold {
			low++
		}
		if i > 0 {
			gap := w.StartTime - words[i-1].EndTime
			if gap > silenceGapSeconds {
				silence += gap
			}
		}
	}

	m.OverallConfidence = sum / float64(len(words))
	m.LowConfidenceWordCount = low
	m.SilenceDuration = silence
	switch {
	case m.OverallConfidence >= 0.8:
		m.BackgroundNoiseLevel = "low"
	case m.OverallConfidence >= 0.6:
		m.BackgroundNoiseLevel = "medium"
	default:
		m.BackgroundNoiseLevel = "high"
	}
	return m
}

// noteText flattens the narrative fields used for terminology counting.
func noteText(note models.SOAPNote) string {
	parts := []string{
		note.Subjective.ChiefComplaint,
		note.Subjective.HistoryOfPresentIllness,
		strings.Join(note.Subjective.Medications, " "),
		note.Objective.PhysicalExam,
		note.Assessment.ClinicalImpression,
		strings.Join(note.Assessment.DifferentialDiagnoses, " "),
		strings.Join(note.Plan.Treatments, " "),
		note.Plan.FollowUp,
	}
	for _, d := range note.Assessment.Diagnoses {
		parts = append(parts, d.Description)
	}
	for _, med := range note.Plan.Medications {
		parts = append(parts, med.Name)
	}
	return strings.Join(parts, " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
