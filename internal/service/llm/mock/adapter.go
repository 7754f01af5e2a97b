// Package mock provides a mock LLM adapter for testing without API keys.
package mock

import (
	"context"
	"sync"

	"ai-clinical-scribe-service/internal/service/llm"
)

// DefaultResponse is a well-formed fenced-JSON SOAP answer resembling real
// model output for the scripted mock encounter.
const DefaultResponse = "Here is the structured note:\n" +
	"```json\n" +
	`{
  "subjective": {
    "chiefComplaint": "Persistent cough and fever for three days",
    "historyOfPresentIllness": "Patient reports a persistent cough and fever for three days, with chest pain on deep coughing.",
    "reviewOfSystems": ["Positive for cough, fever, chest pain"],
    "pastMedicalHistory": [],
    "medications": [],
    "allergies": [],
    "socialHistory": "",
    "familyHistory": ""
  },
  "objective": {
    "vitalSigns": {
      "temperature": "38.2 C",
      "bloodPressure": "120/80",
      "heartRate": "",
      "respiratoryRate": "",
      "oxygenSaturation": "",
      "weight": "",
      "height": ""
    },
    "physicalExam": "Febrile, no respiratory distress at rest.",
    "diagnosticResults": []
  },
  "assessment": {
    "clinicalImpression": "Acute bronchitis, likely bacterial.",
    "diagnoses": [{"code": "J20.9", "description": "Acute bronchitis, unspecified", "type": "primary"}],
    "differentialDiagnoses": ["Community-acquired pneumonia"]
  },
  "plan": {
    "treatments": ["Rest and hydration"],
    "medications": [{"name": "Amoxicillin", "dosage": "500 mg", "frequency": "three times daily", "duration": "7 days", "instructions": "Take with food"}],
    "investigations": ["Chest x-ray"],
    "followUp": "Return in one week or sooner if symptoms worsen",
    "referrals": [],
    "patientEducation": ["Advised on antibiotic course completion"]
  }
}
` + "```"

// Adapter implements llm.Adapter with canned responses.
type Adapter struct {
	mu       sync.Mutex
	Response string
	Err      error
	prompts  []string
}

// New creates a mock adapter returning the default SOAP response.
func New() *Adapter {
	return &Adapter{Response: DefaultResponse}
}

// Generate records the prompt and returns the configured response.
func (a *Adapter) Generate(_ context.Context, prompt string, _ llm.Params) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return "", a.Err
	}
	a.prompts = append(a.prompts, prompt)
	return a.Response, nil
}

// Prompts returns all prompts seen so far.
func (a *Adapter) Prompts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.prompts))
	copy(out, a.prompts)
	return out
}
