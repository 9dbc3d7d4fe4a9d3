package survey

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/flash"
	"github.com/WailSalutem-Health-Care/care-portal/internal/medication"
	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
)

// Medicines lists a patient's prescriptions.
type Medicines interface {
	ListForPatient(ctx context.Context, patientID string) ([]medication.Medicine, error)
}

// MetricsRecorder counts survey submissions.
type MetricsRecorder interface {
	RecordSurvey(ctx context.Context, ok bool)
}

// Form is the data behind the survey page.
type Form struct {
	Feelings  []Feeling             `json:"feelings"`
	Symptoms  []Symptom             `json:"symptoms"`
	Medicines []medication.Medicine `json:"medicines"`
}

type Service struct {
	repo      RepositoryInterface
	medicines Medicines
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	loc       *time.Location
	now       func() time.Time
}

func NewService(repo RepositoryInterface, medicines Medicines, publisher messaging.PublisherInterface, metrics MetricsRecorder, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:      repo,
		medicines: medicines,
		publisher: publisher,
		metrics:   metrics,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *Service) today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

// Form returns the catalogue and the patient's current medicines.
func (s *Service) Form(ctx context.Context, patientID string) (*Form, error) {
	all, err := s.medicines.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	active := []medication.Medicine{}
	for _, m := range all {
		if m.Active(today) {
			active = append(active, m)
		}
	}
	return &Form{Feelings: Feelings, Symptoms: Symptoms, Medicines: active}, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID string, limit int) ([]Survey, error) {
	return s.repo.ListByPatient(ctx, patientID, limit)
}

func (s *Service) LatestForPatients(ctx context.Context, patientIDs []string) (map[string]Survey, error) {
	return s.repo.LatestByPatients(ctx, patientIDs)
}

// Submit validates and stores a survey. Outcomes reach the user through sink.
func (s *Service) Submit(ctx context.Context, sink flash.Sink, patient *auth.Identity, req SubmitRequest) bool {
	logger := log.Ctx(ctx)

	medicines, err := s.medicines.ListForPatient(ctx, patient.ID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load medicines for survey")
		flash.Error(sink, "Failed to submit health survey")
		s.record(ctx, false)
		return false
	}
	known := make(map[string]bool, len(medicines))
	for _, m := range medicines {
		known[m.ID] = true
	}

	if err := req.Validate(known); err != nil {
		msg := err.Error()
		if errors.Is(err, ErrUnknownMedicine) {
			msg = "Medication feedback refers to a medicine that is not prescribed to you"
		}
		flash.Error(sink, msg)
		s.record(ctx, false)
		return false
	}

	symptoms := req.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	created, err := s.repo.Create(ctx, Survey{
		PatientID:          patient.ID,
		Date:               s.today(),
		Feeling:            req.Feeling,
		Symptoms:           symptoms,
		Notes:              req.Notes,
		NotifyDoctor:       req.NotifyDoctor,
		NotifyCaretaker:    req.NotifyCaretaker,
		MedicationFeedback: req.MedicationFeedback,
	})
	if err != nil {
		logger.Error().Err(err).Str("patient_id", patient.ID).Msg("failed to store health survey")
		flash.Error(sink, "Failed to submit health survey")
		s.record(ctx, false)
		return false
	}
	s.record(ctx, true)

	if s.publisher != nil {
		event := messaging.SurveySubmittedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventSurveySubmitted),
			Data: messaging.SurveySubmittedData{
				SurveyID:        created.ID,
				PatientID:       created.PatientID,
				Feeling:         string(created.Feeling),
				Symptoms:        created.Symptoms,
				NotifyDoctor:    created.NotifyDoctor,
				NotifyCaretaker: created.NotifyCaretaker,
			},
		}
		if err := s.publisher.Publish(ctx, messaging.EventSurveySubmitted, event); err != nil {
			logger.Warn().Err(err).Msg("failed to publish survey.submitted event")
		}
	}

	logger.Info().Str("survey_id", created.ID).Msg("✓ Health survey submitted")
	flash.Success(sink, "Health survey submitted successfully!")
	sink.Navigate("/patient")
	return true
}

func (s *Service) record(ctx context.Context, ok bool) {
	if s.metrics != nil {
		s.metrics.RecordSurvey(ctx, ok)
	}
}
