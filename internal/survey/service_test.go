package survey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/flash"
	"github.com/WailSalutem-Health-Care/care-portal/internal/medication"
	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
	"github.com/WailSalutem-Health-Care/care-portal/internal/testutil"
)

type mockRepository struct {
	createFunc           func(ctx context.Context, s Survey) (*Survey, error)
	listByPatientFunc    func(ctx context.Context, patientID string, limit int) ([]Survey, error)
	latestByPatientsFunc func(ctx context.Context, patientIDs []string) (map[string]Survey, error)
}

func (m *mockRepository) Create(ctx context.Context, s Survey) (*Survey, error) {
	return m.createFunc(ctx, s)
}

func (m *mockRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]Survey, error) {
	return m.listByPatientFunc(ctx, patientID, limit)
}

func (m *mockRepository) LatestByPatients(ctx context.Context, patientIDs []string) (map[string]Survey, error) {
	return m.latestByPatientsFunc(ctx, patientIDs)
}

type mockMedicines struct {
	list []medication.Medicine
}

func (m *mockMedicines) ListForPatient(ctx context.Context, patientID string) ([]medication.Medicine, error) {
	return m.list, nil
}

type countingMetrics struct {
	ok, failed int
}

func (c *countingMetrics) RecordSurvey(ctx context.Context, ok bool) {
	if ok {
		c.ok++
	} else {
		c.failed++
	}
}

var (
	testPatient = &auth.Identity{ID: "p1", Name: "Pat", Role: auth.RolePatient}
	testDay     = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
)

func testMedicines() *mockMedicines {
	ended := testDay.AddDate(0, 0, -3)
	return &mockMedicines{list: []medication.Medicine{
		{ID: "m1", Name: "Amoxicillin"},
		{ID: "m2", Name: "Old", EndDate: &ended},
	}}
}

// TestForm_ActiveMedicines tests that ended prescriptions are hidden from the form
func TestForm_ActiveMedicines(t *testing.T) {
	svc := NewService(&mockRepository{}, testMedicines(), nil, nil, time.UTC)
	svc.now = func() time.Time { return testDay }

	form, err := svc.Form(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(form.Medicines) != 1 || form.Medicines[0].ID != "m1" {
		t.Errorf("Expected only m1, got %+v", form.Medicines)
	}
	if len(form.Symptoms) != 12 || len(form.Feelings) != 3 {
		t.Errorf("Unexpected catalogue sizes %d/%d", len(form.Symptoms), len(form.Feelings))
	}
}

// TestSubmit_Success tests storage, event and navigation for a valid survey
func TestSubmit_Success(t *testing.T) {
	var stored Survey
	repo := &mockRepository{
		createFunc: func(ctx context.Context, s Survey) (*Survey, error) {
			stored = s
			s.ID = "s1"
			return &s, nil
		},
	}
	pub := testutil.NewMockPublisher()
	metrics := &countingMetrics{}
	svc := NewService(repo, testMedicines(), pub, metrics, time.UTC)
	svc.now = func() time.Time { return testDay }

	rec := flash.NewRecorder()
	ok := svc.Submit(context.Background(), rec, testPatient, SubmitRequest{
		Feeling:      FeelingWorse,
		Symptoms:     []string{"fever", "cough"},
		NotifyDoctor: true,
		MedicationFeedback: map[string]MedicationFeedback{
			"m1": {Effective: false, SideEffects: "nausea"},
			"m2": {Effective: true},
		},
	})
	if !ok {
		t.Fatalf("Expected success, notices: %+v", rec.Notices())
	}
	if stored.PatientID != "p1" || len(stored.MedicationFeedback) != 2 || !stored.Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected stored survey %+v", stored)
	}
	if rec.Redirect() != "/patient" {
		t.Errorf("Expected redirect /patient, got %q", rec.Redirect())
	}
	if n := rec.Notices(); len(n) != 1 || n[0].Message != "Health survey submitted successfully!" {
		t.Errorf("Unexpected notices %+v", n)
	}
	events := pub.GetEventsByKey(messaging.EventSurveySubmitted)
	if len(events) != 1 {
		t.Fatalf("Expected one survey.submitted event, got %d", len(events))
	}
	if e := events[0].EventData.(messaging.SurveySubmittedEvent); !e.Data.NotifyDoctor || e.Data.NotifyCaretaker {
		t.Errorf("Unexpected notify flags %+v", e.Data)
	}
	if metrics.ok != 1 {
		t.Errorf("Expected one recorded success, got %d", metrics.ok)
	}
}

// TestSubmit_Rejected tests validation failures never reach the repository
func TestSubmit_Rejected(t *testing.T) {
	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"missing feeling", SubmitRequest{}},
		{"unknown feeling", SubmitRequest{Feeling: "great"}},
		{"unknown symptom", SubmitRequest{Feeling: FeelingSame, Symptoms: []string{"hiccups"}}},
		{"duplicate symptom", SubmitRequest{Feeling: FeelingSame, Symptoms: []string{"fever", "fever"}}},
		{"foreign medicine", SubmitRequest{Feeling: FeelingSame, MedicationFeedback: map[string]MedicationFeedback{"m9": {}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{
				createFunc: func(ctx context.Context, s Survey) (*Survey, error) {
					t.Error("Create must not be called")
					return nil, nil
				},
			}
			pub := testutil.NewMockPublisher()
			svc := NewService(repo, testMedicines(), pub, nil, time.UTC)

			rec := flash.NewRecorder()
			if svc.Submit(context.Background(), rec, testPatient, tt.req) {
				t.Fatal("Expected failure")
			}
			if n := rec.Notices(); len(n) != 1 || n[0].Kind != flash.KindError {
				t.Errorf("Expected one error notice, got %+v", n)
			}
			if rec.Redirect() != "" {
				t.Errorf("Expected no navigation, got %q", rec.Redirect())
			}
			pub.AssertEventNotPublished(t, messaging.EventSurveySubmitted)
		})
	}
}

// TestSubmit_StoreFailure tests that a failed insert is reported as a notice
func TestSubmit_StoreFailure(t *testing.T) {
	repo := &mockRepository{
		createFunc: func(ctx context.Context, s Survey) (*Survey, error) {
			return nil, errors.New("tx aborted")
		},
	}
	metrics := &countingMetrics{}
	svc := NewService(repo, testMedicines(), nil, metrics, time.UTC)

	rec := flash.NewRecorder()
	if svc.Submit(context.Background(), rec, testPatient, SubmitRequest{Feeling: FeelingBetter}) {
		t.Fatal("Expected failure")
	}
	if n := rec.Notices(); len(n) != 1 || n[0].Message != "Failed to submit health survey" {
		t.Errorf("Unexpected notices %+v", n)
	}
	if metrics.failed != 1 {
		t.Errorf("Expected one recorded failure, got %d", metrics.failed)
	}
}
