package notegen

import (
	"fmt"
	"strings"
)

// EncounterContext carries the clinical context embedded in the prompt.
type EncounterContext struct {
	Specialty       string
	EncounterType   string
	PatientAge      int
	PatientGender   string
	KnownConditions []string
}

const promptTemplate = `You are a clinical documentation assistant producing a SOAP note from a doctor-patient conversation transcript.

Encounter context:
- Specialty: %s
- Encounter type: %s
- Patient: %s
- Known conditions: %s

Output ONLY a valid JSON object inside a fenced code block matching this exact schema:
` + "```json" + `
{
  "subjective": {
    "chiefComplaint": "<primary reason for the visit, in the patient's words>",
    "historyOfPresentIllness": "<narrative of symptom onset, duration, severity, modifiers>",
    "reviewOfSystems": ["<positive and pertinent negative findings by system>"],
    "pastMedicalHistory": ["<relevant prior conditions>"],
    "medications": ["<current medications mentioned>"],
    "allergies": ["<allergies mentioned>"],
    "socialHistory": "<smoking, alcohol, occupation if mentioned>",
    "familyHistory": "<relevant family history if mentioned>"
  },
  "objective": {
    "vitalSigns": {"temperature": "", "bloodPressure": "", "heartRate": "", "respiratoryRate": "", "oxygenSaturation": "", "weight": "", "height": ""},
    "physicalExam": "<examination findings stated by the clinician>",
    "diagnosticResults": ["<test results discussed>"]
  },
  "assessment": {
    "clinicalImpression": "<the clinician's working diagnosis and reasoning>",
    "diagnoses": [{"code": "<ICD-10 code if inferable>", "description": "<diagnosis>", "type": "<primary|secondary>"}],
    "differentialDiagnoses": ["<alternatives considered>"]
  },
  "plan": {
    "treatments": ["<non-medication treatments>"],
    "medications": [{"name": "", "dosage": "", "frequency": "", "duration": "", "instructions": ""}],
    "investigations": ["<ordered tests>"],
    "followUp": "<follow-up instructions>",
    "referrals": ["<specialist referrals>"],
    "patientEducation": ["<education provided>"]
  }
}
` + "```" + `

Rules:
- Use only information present in the transcript; never invent findings.
- Leave fields as empty strings or empty arrays when the transcript is silent.
- Keep the patient's own phrasing for the chief complaint where possible.
- Output the JSON block and nothing else.

Transcript:
%s`

// BuildPrompt assembles the generation prompt from the encounter context and
// the verbatim transcript.
func BuildPrompt(transcript string, ec EncounterContext) string {
	specialty := ec.Specialty
	if specialty == "" {
		specialty = "general medicine"
	}
	encounterType := ec.EncounterType
	if encounterType == "" {
		encounterType = "outpatient consultation"
	}

	patient := "unspecified"
	if ec.PatientAge > 0 || ec.PatientGender != "" {
		parts := []string{}
		if ec.PatientAge > 0 {
			parts = append(parts, fmt.Sprintf("%d years old", ec.PatientAge))
		}
		if ec.PatientGender != "" {
			parts = append(parts, ec.PatientGender)
		}
		patient = strings.Join(parts, ", ")
	}

	conditions := "none documented"
	if len(ec.KnownConditions) > 0 {
		conditions = strings.Join(ec.KnownConditions, "; ")
	}

	return fmt.Sprintf(promptTemplate, specialty, encounterType, patient, conditions, transcript)
}
