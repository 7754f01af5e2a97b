package notegen

import (
	"strings"
	"testing"
)

const validJSON = `{
  "subjective": {"chiefComplaint": "headache", "historyOfPresentIllness": "two days of throbbing pain"},
  "objective": {"physicalExam": "alert, no focal deficits"},
  "assessment": {"clinicalImpression": "tension headache"},
  "plan": {"followUp": "return if worsening", "treatments": ["hydration"]}
}`

func TestParseResponse_FencedJSONBlock(t *testing.T) {
	raw := "Here is the note:\n```json\n" + validJSON + "\n```\nLet me know if you need changes."

	note, usedFallback := ParseResponse(raw)

	if usedFallback {
		t.Error("expected JSON path, not fallback")
	}
	if note.Subjective.ChiefComplaint != "headache" {
		t.Errorf("unexpected chief complaint: %q", note.Subjective.ChiefComplaint)
	}
	if note.Plan.FollowUp != "return if worsening" {
		t.Errorf("unexpected follow-up: %q", note.Plan.FollowUp)
	}
}

func TestParseResponse_GenericFencedBlock(t *testing.T) {
	raw := "```\n" + validJSON + "\n```"

	note, usedFallback := ParseResponse(raw)

	if usedFallback {
		t.Error("expected JSON path, not fallback")
	}
	if note.Assessment.ClinicalImpression != "tension headache" {
		t.Errorf("unexpected impression: %q", note.Assessment.ClinicalImpression)
	}
}

func TestParseResponse_BareJSONWithoutFences(t *testing.T) {
	raw := "The structured output follows. " + validJSON + " End of note."

	note, usedFallback := ParseResponse(raw)

	if usedFallback {
		t.Error("expected brace-span JSON path, not fallback")
	}
	if note.Subjective.HistoryOfPresentIllness != "two days of throbbing pain" {
		t.Errorf("unexpected HPI: %q", note.Subjective.HistoryOfPresentIllness)
	}
}

func TestParseResponse_FallbackOnSectionHeaders(t *testing.T) {
	raw := `SUBJECTIVE:
Patient complains of sore throat for two days. No fever reported.

OBJECTIVE:
Pharyngeal erythema, no exudate.

ASSESSMENT:
Viral pharyngitis.

PLAN:
Supportive care, salt water gargles, review in 3 days.`

	note, usedFallback := ParseResponse(raw)

	if !usedFallback {
		t.Error("expected fallback path")
	}
	if !strings.Contains(note.Subjective.HistoryOfPresentIllness, "sore throat") {
		t.Errorf("subjective not captured: %q", note.Subjective.HistoryOfPresentIllness)
	}
	if note.Subjective.ChiefComplaint == "" {
		t.Error("fallback should derive a chief complaint from the first sentence")
	}
	if !strings.Contains(note.Objective.PhysicalExam, "erythema") {
		t.Errorf("objective not captured: %q", note.Objective.PhysicalExam)
	}
	if note.Assessment.ClinicalImpression != "Viral pharyngitis." {
		t.Errorf("assessment not captured: %q", note.Assessment.ClinicalImpression)
	}
	if len(note.Plan.Treatments) != 1 || !strings.Contains(note.Plan.Treatments[0], "Supportive care") {
		t.Errorf("plan not captured: %v", note.Plan.Treatments)
	}
}

func TestParseResponse_FallbackMarkdownHeaders(t *testing.T) {
	raw := "## SUBJECTIVE\ncough\n\n**ASSESSMENT:** bronchitis\n"

	note, usedFallback := ParseResponse(raw)

	if !usedFallback {
		t.Error("expected fallback path")
	}
	if note.Subjective.HistoryOfPresentIllness != "cough" {
		t.Errorf("markdown header section not captured: %q", note.Subjective.HistoryOfPresentIllness)
	}
	if note.Assessment.ClinicalImpression != "bronchitis" {
		t.Errorf("bold header section not captured: %q", note.Assessment.ClinicalImpression)
	}
}

// The fallback must never fail: any input produces a well-formed note with
// every schema field present.
func TestParseResponse_NeverFailsAndAlwaysNormalized(t *testing.T) {
	inputs := []string{
		"",
		"complete gibberish with no structure at all",
		"```json\n{ broken json",
		"{\"subjective\": 42}",
		"PLAN: only a plan here",
		strings.Repeat("{", 1000),
	}

	for _, raw := range inputs {
		note, _ := ParseResponse(raw)
		if note.Subjective.ReviewOfSystems == nil || note.Subjective.Medications == nil {
			t.Errorf("input %.20q: subjective slices not normalized", raw)
		}
		if note.Assessment.Diagnoses == nil || note.Plan.Treatments == nil || note.Plan.Medications == nil {
			t.Errorf("input %.20q: assessment/plan slices not normalized", raw)
		}
	}
}

func TestParseResponse_PartialJSONFieldsDefaulted(t *testing.T) {
	raw := "```json\n{\"assessment\": {\"clinicalImpression\": \"otitis media\"}}\n```"

	note, usedFallback := ParseResponse(raw)

	if usedFallback {
		t.Error("expected JSON path")
	}
	if note.Assessment.ClinicalImpression != "otitis media" {
		t.Errorf("unexpected impression: %q", note.Assessment.ClinicalImpression)
	}
	if note.Plan.Investigations == nil || note.Subjective.Allergies == nil {
		t.Error("missing sections must still be normalized to empty values")
	}
}
