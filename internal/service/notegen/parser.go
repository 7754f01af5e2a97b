package notegen

import (
	"encoding/json"
	"regexp"
	"strings"

	"ai-clinical-scribe-service/internal/models"
)

// Dual-path response parsing: a fenced JSON block is the primary path; when
// that fails in any way, a section-header regex fallback produces a degraded
// but well-formed note. The fallback never fails, so a malformed model
// response still yields a note the review workflow can surface.

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	fencedGenericRe = regexp.MustCompile("(?s)```\\s*(.*?)```")
	sectionHeaderRe = regexp.MustCompile(`(?im)^[ \t]*(?:#+[ \t]*|\*\*)?(SUBJECTIVE|OBJECTIVE|ASSESSMENT|PLAN)(?:\*\*)?[ \t]*(?::\*\*|:|$)`)
)

// ParseResponse parses raw model output into a fully normalized SOAP note.
// The bool result reports whether the regex fallback was used.
func ParseResponse(raw string) (models.SOAPNote, bool) {
	if note, err := parseJSON(raw); err == nil {
		note.Normalize()
		return note, false
	}
	note := parseFallback(raw)
	note.Normalize()
	return note, true
}

// parseJSON locates a JSON payload (fenced block preferred, bare brace span
// otherwise) and unmarshals it into the canonical schema.
func parseJSON(raw string) (models.SOAPNote, error) {
	var note models.SOAPNote
	payload := extractJSON(raw)
	if err := json.Unmarshal([]byte(payload), &note); err != nil {
		return models.SOAPNote{}, err
	}
	return note, nil
}

// extractJSON returns the best JSON candidate from the raw text: an explicit
// ```json fence, any generic fence, or the outermost brace span.
func extractJSON(raw string) string {
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := fencedGenericRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// parseFallback extracts SOAP sections by header. Section bodies land in the
// main narrative field of each section; structure beyond that is not
// recoverable from prose.
func parseFallback(raw string) models.SOAPNote {
	sections := splitSections(raw)

	var note models.SOAPNote
	note.Subjective.HistoryOfPresentIllness = sections["SUBJECTIVE"]
	note.Subjective.ChiefComplaint = firstSentence(sections["SUBJECTIVE"])
	note.Objective.PhysicalExam = sections["OBJECTIVE"]
	note.Assessment.ClinicalImpression = sections["ASSESSMENT"]
	if plan := sections["PLAN"]; plan != "" {
		note.Plan.Treatments = []string{plan}
	}
	return note
}

// splitSections carves the text into header-delimited blocks. Headers may be
// plain ("SUBJECTIVE:"), markdown ("## SUBJECTIVE") or bold ("**PLAN:**").
func splitSections(raw string) map[string]string {
	out := map[string]string{}
	locs := sectionHeaderRe.FindAllStringSubmatchIndex(raw, -1)
	for i, loc := range locs {
		name := strings.ToUpper(raw[loc[2]:loc[3]])
		bodyStart := loc[1]
		bodyEnd := len(raw)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(raw[bodyStart:bodyEnd])
		if body != "" && out[name] == "" {
			out[name] = body
		}
	}
	return out
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	for _, sep := range []string{". ", ".\n", "\n"} {
		if idx := strings.Index(s, sep); idx > 0 {
			return strings.TrimSpace(s[:idx+1])
		}
	}
	return s
}
