package models

// SOAPNote is the canonical structured clinical document. Every field has a
// fixed shape so downstream consumers (UI, billing, audit) never branch on
// missing optional fields; the note generation engine normalizes its output
// against this schema before anything else sees it.
type SOAPNote struct {
	Subjective Subjective `json:"subjective"`
	Objective  Objective  `json:"objective"`
	Assessment Assessment `json:"assessment"`
	Plan       Plan       `json:"plan"`
}

// Subjective captures what the patient reports.
type Subjective struct {
	ChiefComplaint          string   `json:"chiefComplaint"`
	HistoryOfPresentIllness string   `json:"historyOfPresentIllness"`
	ReviewOfSystems         []string `json:"reviewOfSystems"`
	PastMedicalHistory      []string `json:"pastMedicalHistory"`
	Medications             []string `json:"medications"`
	Allergies               []string `json:"allergies"`
	SocialHistory           string   `json:"socialHistory"`
	FamilyHistory           string   `json:"familyHistory"`
}

// VitalSigns are recorded as strings because they arrive as free text from
// the conversation ("BP one twenty over eighty"), not from instruments.
type VitalSigns struct {
	Temperature      string `json:"temperature"`
	BloodPressure    string `json:"bloodPressure"`
	HeartRate        string `json:"heartRate"`
	RespiratoryRate  string `json:"respiratoryRate"`
	OxygenSaturation string `json:"oxygenSaturation"`
	Weight           string `json:"weight"`
	Height           string `json:"height"`
}

// Objective captures clinician observations and findings.
type Objective struct {
	VitalSigns        VitalSigns `json:"vitalSigns"`
	PhysicalExam      string     `json:"physicalExam"`
	DiagnosticResults []string   `json:"diagnosticResults"`
}

// Diagnosis is a coded diagnosis entry.
type Diagnosis struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Assessment captures the clinical impression and diagnoses.
type Assessment struct {
	ClinicalImpression    string      `json:"clinicalImpression"`
	Diagnoses             []Diagnosis `json:"diagnoses"`
	DifferentialDiagnoses []string    `json:"differentialDiagnoses"`
}

// PrescribedMedication is one medication ordered in the plan.
type PrescribedMedication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// Plan captures the treatment plan.
type Plan struct {
	Treatments       []string               `json:"treatments"`
	Medications      []PrescribedMedication `json:"medications"`
	Investigations   []string               `json:"investigations"`
	FollowUp         string                 `json:"followUp"`
	Referrals        []string               `json:"referrals"`
	PatientEducation []string               `json:"patientEducation"`
}

// Normalize replaces nil slices with empty ones so serialized notes always
// carry the full schema.
func (s *SOAPNote) Normalize() {
	if s.Subjective.ReviewOfSystems == nil {
		s.Subjective.ReviewOfSystems = []string{}
	}
	if s.Subjective.PastMedicalHistory == nil {
		s.Subjective.PastMedicalHistory = []string{}
	}
	if s.Subjective.Medications == nil {
		s.Subjective.Medications = []string{}
	}
	if s.Subjective.Allergies == nil {
		s.Subjective.Allergies = []string{}
	}
	if s.Objective.DiagnosticResults == nil {
		s.Objective.DiagnosticResults = []string{}
	}
	if s.Assessment.Diagnoses == nil {
		s.Assessment.Diagnoses = []Diagnosis{}
	}
	if s.Assessment.DifferentialDiagnoses == nil {
		s.Assessment.DifferentialDiagnoses = []string{}
	}
	if s.Plan.Treatments == nil {
		s.Plan.Treatments = []string{}
	}
	if s.Plan.Medications == nil {
		s.Plan.Medications = []PrescribedMedication{}
	}
	if s.Plan.Investigations == nil {
		s.Plan.Investigations = []string{}
	}
	if s.Plan.Referrals == nil {
		s.Plan.Referrals = []string{}
	}
	if s.Plan.PatientEducation == nil {
		s.Plan.PatientEducation = []string{}
	}
}

// HasPlan reports whether the plan carries a follow-up or at least one treatment.
func (s *SOAPNote) HasPlan() bool {
	return s.Plan.FollowUp != "" || len(s.Plan.Treatments) > 0
}
