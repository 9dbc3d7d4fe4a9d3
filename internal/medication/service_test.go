package medication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
	"github.com/WailSalutem-Health-Care/care-portal/internal/testutil"
)

type mockRepository struct {
	listByPatientFunc func(ctx context.Context, patientID string) ([]Medicine, error)
	createFunc        func(ctx context.Context, m Medicine) (*Medicine, error)
}

func (m *mockRepository) ListByPatient(ctx context.Context, patientID string) ([]Medicine, error) {
	return m.listByPatientFunc(ctx, patientID)
}

func (m *mockRepository) Create(ctx context.Context, med Medicine) (*Medicine, error) {
	return m.createFunc(ctx, med)
}

// TestPrescribe_Success tests defaults and the published event
func TestPrescribe_Success(t *testing.T) {
	var stored Medicine
	repo := &mockRepository{
		createFunc: func(ctx context.Context, m Medicine) (*Medicine, error) {
			stored = m
			m.ID = "m1"
			return &m, nil
		},
	}
	pub := testutil.NewMockPublisher()
	svc := NewService(repo, pub, time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC) }

	m, err := svc.Prescribe(context.Background(), "d1", PrescribeRequest{
		PatientID: " p1 ", Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", EndDate: "2024-03-12",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stored.PatientID != "p1" || stored.DoctorID != "d1" {
		t.Errorf("Unexpected stored medicine %+v", stored)
	}
	if !stored.StartDate.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected start date today, got %s", stored.StartDate)
	}
	if stored.EndDate == nil || stored.EndDate.Day() != 12 {
		t.Errorf("Expected end date, got %v", stored.EndDate)
	}
	if m.ID != "m1" {
		t.Errorf("Expected id m1, got %s", m.ID)
	}
	pub.AssertEventCount(t, messaging.EventMedicinePrescribed, 1)
}

// TestPrescribe_Validation tests rejected requests
func TestPrescribe_Validation(t *testing.T) {
	valid := PrescribeRequest{PatientID: "p1", Name: "A", Dosage: "1", Frequency: "daily"}
	tests := []struct {
		name   string
		mutate func(r *PrescribeRequest)
	}{
		{"missing patient", func(r *PrescribeRequest) { r.PatientID = "" }},
		{"missing name", func(r *PrescribeRequest) { r.Name = "  " }},
		{"missing dosage", func(r *PrescribeRequest) { r.Dosage = "" }},
		{"missing frequency", func(r *PrescribeRequest) { r.Frequency = "" }},
		{"bad start", func(r *PrescribeRequest) { r.StartDate = "yesterday" }},
		{"end before start", func(r *PrescribeRequest) { r.StartDate = "2024-03-05"; r.EndDate = "2024-03-01" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := testutil.NewMockPublisher()
			svc := NewService(&mockRepository{}, pub, time.UTC)
			req := valid
			tt.mutate(&req)
			if _, err := svc.Prescribe(context.Background(), "d1", req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Expected ErrInvalidRequest, got: %v", err)
			}
			pub.AssertEventNotPublished(t, messaging.EventMedicinePrescribed)
		})
	}
}

// TestMedicine_Active tests end date handling
func TestMedicine_Active(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	ended := day.AddDate(0, 0, -1)
	m := Medicine{}
	if !m.Active(day) {
		t.Error("Expected open-ended medicine to be active")
	}
	m.EndDate = &ended
	if m.Active(day) {
		t.Error("Expected ended medicine to be inactive")
	}
	m.EndDate = &day
	if !m.Active(day) {
		t.Error("Expected medicine ending today to be active")
	}
}
