package survey

import (
	"fmt"
	"strings"
	"time"
)

// Feeling compares the patient's state with the last visit.
type Feeling string

const (
	FeelingBetter Feeling = "better"
	FeelingSame   Feeling = "same"
	FeelingWorse  Feeling = "worse"
)

var Feelings = []Feeling{FeelingBetter, FeelingSame, FeelingWorse}

func (f Feeling) Valid() bool {
	return f == FeelingBetter || f == FeelingSame || f == FeelingWorse
}

type Symptom struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Symptoms is the fixed checklist offered on the survey form.
var Symptoms = []Symptom{
	{ID: "fever", Label: "Fever"},
	{ID: "cough", Label: "Cough"},
	{ID: "sore-throat", Label: "Sore throat"},
	{ID: "headache", Label: "Headache"},
	{ID: "body-aches", Label: "Body aches"},
	{ID: "fatigue", Label: "Fatigue"},
	{ID: "shortness-of-breath", Label: "Shortness of breath"},
	{ID: "nausea", Label: "Nausea or vomiting"},
	{ID: "diarrhea", Label: "Diarrhea"},
	{ID: "loss-of-taste", Label: "Loss of taste or smell"},
	{ID: "chest-pain", Label: "Chest pain"},
	{ID: "dizziness", Label: "Dizziness"},
}

func knownSymptom(id string) bool {
	for _, s := range Symptoms {
		if s.ID == id {
			return true
		}
	}
	return false
}

// MedicationFeedback is the patient's report on one prescribed medicine.
type MedicationFeedback struct {
	Effective   bool   `json:"effective"`
	SideEffects string `json:"side_effects,omitempty"`
}

type Survey struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	Date            time.Time `json:"date"`
	Feeling         Feeling   `json:"feeling"`
	Symptoms        []string  `json:"symptoms"`
	Notes           string    `json:"notes,omitempty"`
	NotifyDoctor    bool      `json:"notify_doctor"`
	NotifyCaretaker bool      `json:"notify_caretaker"`
	// MedicationFeedback is keyed by medicine id.
	MedicationFeedback map[string]MedicationFeedback `json:"medication_feedback"`
	CreatedAt          time.Time                     `json:"created_at"`
}

type SubmitRequest struct {
	Feeling            Feeling                       `json:"feeling"`
	Symptoms           []string                      `json:"symptoms"`
	Notes              string                        `json:"notes"`
	NotifyDoctor       bool                          `json:"notify_doctor"`
	NotifyCaretaker    bool                          `json:"notify_caretaker"`
	MedicationFeedback map[string]MedicationFeedback `json:"medication_feedback"`
}

// Validate checks the request against the catalogue and the patient's medicine ids.
func (r *SubmitRequest) Validate(medicineIDs map[string]bool) error {
	if !r.Feeling.Valid() {
		return fmt.Errorf("%w: please select how you are feeling", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(r.Symptoms))
	for _, s := range r.Symptoms {
		if !knownSymptom(s) {
			return fmt.Errorf("%w: unknown symptom %q", ErrInvalidRequest, s)
		}
		if seen[s] {
			return fmt.Errorf("%w: duplicate symptom %q", ErrInvalidRequest, s)
		}
		seen[s] = true
	}
	for id, fb := range r.MedicationFeedback {
		if !medicineIDs[id] {
			return fmt.Errorf("%w: medicine %q", ErrUnknownMedicine, id)
		}
		if len(strings.TrimSpace(fb.SideEffects)) > 1000 {
			return fmt.Errorf("%w: side effects description is too long", ErrInvalidRequest)
		}
	}
	return nil
}
