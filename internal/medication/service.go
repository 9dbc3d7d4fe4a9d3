package medication

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
)

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	loc       *time.Location
	now       func() time.Time
}

func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, publisher: publisher, loc: loc, now: time.Now}
}

func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]Medicine, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Prescribe records a medicine for a patient on behalf of doctorID.
func (s *Service) Prescribe(ctx context.Context, doctorID string, req PrescribeRequest) (*Medicine, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n := s.now().In(s.loc)
	start := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
	if req.StartDate != "" {
		d, err := time.ParseInLocation("2006-01-02", req.StartDate, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidRequest)
		}
		start = d
	}
	var end *time.Time
	if req.EndDate != "" {
		d, err := time.ParseInLocation("2006-01-02", req.EndDate, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidRequest)
		}
		if d.Before(start) {
			return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidRequest)
		}
		end = &d
	}

	m, err := s.repo.Create(ctx, Medicine{
		PatientID: req.PatientID,
		DoctorID:  doctorID,
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		StartDate: start,
		EndDate:   end,
		Notes:     req.Notes,
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("medicine_id", m.ID).Str("patient_id", m.PatientID).Msg("✓ Medicine prescribed")

	if s.publisher != nil {
		event := messaging.MedicinePrescribedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventMedicinePrescribed),
			Data: messaging.MedicinePrescribedData{
				MedicineID: m.ID,
				PatientID:  m.PatientID,
				DoctorID:   m.DoctorID,
				Name:       m.Name,
				Dosage:     m.Dosage,
			},
		}
		if err := s.publisher.Publish(ctx, messaging.EventMedicinePrescribed, event); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to publish medicine.prescribed event")
		}
	}
	return m, nil
}
