// Package medterms holds the static boosted medical vocabulary. It serves two
// roles: biasing speech recognition via speech-context phrases, and post-hoc
// detection of domain terms (with confidence and timing) in a finished
// transcript. The vocabulary is a process-wide read-only constant, safe for
// concurrent use.
package medterms

import (
	"strings"

	"ai-clinical-scribe-service/internal/models"
)

// DefaultBoost is the recognition bias applied to vocabulary phrases.
const DefaultBoost = 15.0

// vocabulary covers common symptoms, examinations, diagnoses and drugs heard
// in primary-care encounters. Multi-word phrases are matched as bigrams.
var vocabulary = []string{
	// Symptoms
	"fever", "cough", "headache", "nausea", "vomiting", "diarrhea",
	"fatigue", "dizziness", "palpitations", "dyspnea", "wheezing",
	"chest pain", "abdominal pain", "back pain", "joint pain",
	"sore throat", "runny nose", "shortness of breath", "blurred vision",
	"weight loss", "night sweats", "loss of appetite", "constipation",
	"rash", "itching", "swelling", "numbness", "tingling",
	// Vitals and examination
	"blood pressure", "heart rate", "respiratory rate", "temperature",
	"oxygen saturation", "pulse", "auscultation", "palpation",
	"tenderness", "edema", "lymphadenopathy", "murmur", "crackles",
	// Conditions
	"hypertension", "diabetes", "asthma", "pneumonia", "bronchitis",
	"migraine", "anemia", "arthritis", "gastritis", "sinusitis",
	"urinary tract infection", "hyperthyroidism", "hypothyroidism",
	"hyperlipidemia", "copd", "gerd", "angina", "arrhythmia",
	"atrial fibrillation", "myocardial infarction", "stroke",
	"depression", "anxiety", "insomnia", "dermatitis", "eczema",
	// Medications
	"paracetamol", "acetaminophen", "ibuprofen", "aspirin", "amoxicillin",
	"azithromycin", "metformin", "insulin", "atorvastatin", "lisinopril",
	"amlodipine", "omeprazole", "pantoprazole", "salbutamol", "albuterol",
	"prednisone", "cetirizine", "loratadine", "metoprolol", "losartan",
	"levothyroxine", "warfarin", "clopidogrel", "gabapentin", "sertraline",
	// Orders
	"complete blood count", "blood glucose", "lipid panel", "urinalysis",
	"chest x-ray", "electrocardiogram", "ecg", "mri", "ct scan",
	"ultrasound", "biopsy", "culture", "thyroid panel",
}

var (
	singleTerms = map[string]bool{}
	bigramTerms = map[string]bool{}
)

func init() {
	for _, term := range vocabulary {
		lower := strings.ToLower(term)
		if strings.Contains(lower, " ") {
			bigramTerms[lower] = true
		} else {
			singleTerms[lower] = true
		}
	}
}

// Phrases returns the full vocabulary for use as recognition speech context.
func Phrases() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Detect scans word-level recognition output for vocabulary terms. Single
// words match directly; phrases match as consecutive word runs. Confidence
// of a phrase match is the minimum confidence of its words.
func Detect(words []models.WordInfo) []models.DetectedTerm {
	detected := make([]models.DetectedTerm, 0)

	for i, w := range words {
		lower := normalizeWord(w.Word)
		if singleTerms[lower] {
			detected = append(detected, models.DetectedTerm{
				Term:       lower,
				Confidence: w.Confidence,
				StartTime:  w.StartTime,
				EndTime:    w.EndTime,
			})
		}

		// Try phrase matches starting at this word (up to 4 words).
		phrase := lower
		conf := w.Confidence
		for j := i + 1; j < len(words) && j < i+4; j++ {
			phrase += " " + normalizeWord(words[j].Word)
			if words[j].Confidence < conf {
				conf = words[j].Confidence
			}
			if bigramTerms[phrase] {
				detected = append(detected, models.DetectedTerm{
					Term:       phrase,
					Confidence: conf,
					StartTime:  w.StartTime,
					EndTime:    words[j].EndTime,
				})
			}
		}
	}
	return detected
}

// CountIn counts vocabulary occurrences in free text. Used by the confidence
// scorer to measure terminology alignment between transcript and note.
func CountIn(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for term := range bigramTerms {
		count += strings.Count(lower, term)
	}
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, tok := range tokens {
		if singleTerms[tok] {
			count++
		}
	}
	return count
}

func normalizeWord(w string) string {
	return strings.Trim(strings.ToLower(w), ".,!?;:\"'()")
}
