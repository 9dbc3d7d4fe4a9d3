package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
	"github.com/WailSalutem-Health-Care/care-portal/internal/pagination"
)

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	loc       *time.Location
}

// NewService builds the service; loc is the clinic time zone used for day boundaries.
func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, publisher: publisher, loc: loc}
}

// Book persists a scheduled appointment and announces it.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if req.PatientID == "" || req.DoctorID == "" || req.HospitalID == "" || req.DateTime.IsZero() {
		return nil, fmt.Errorf("%w: patient, doctor, hospital and date are required", ErrInvalidRequest)
	}

	a, err := s.repo.Create(ctx, Appointment{
		PatientID:  req.PatientID,
		DoctorID:   req.DoctorID,
		HospitalID: req.HospitalID,
		DateTime:   req.DateTime,
		Status:     StatusScheduled,
		Notes:      req.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.EventAppointmentBooked, messaging.AppointmentBookedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventAppointmentBooked),
		Data: messaging.AppointmentBookedData{
			AppointmentID: a.ID,
			PatientID:     a.PatientID,
			DoctorID:      a.DoctorID,
			HospitalID:    a.HospitalID,
			ScheduledAt:   a.DateTime,
		},
	})
	return a, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]PatientAppointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID string, params pagination.Params) (*DoctorAppointmentPage, error) {
	params.Normalize()
	list, total, err := s.repo.ListByDoctor(ctx, doctorID, params.Limit, params.Offset())
	if err != nil {
		return nil, err
	}
	return &DoctorAppointmentPage{
		Appointments: list,
		Pagination:   params.Meta(total),
	}, nil
}

func (s *Service) UpcomingForPatients(ctx context.Context, patientIDs []string, from time.Time) ([]PatientAppointment, error) {
	return s.repo.ListUpcomingByPatients(ctx, patientIDs, from)
}

// CountForDoctorOn counts non-cancelled appointments on day's calendar date in the clinic zone.
func (s *Service) CountForDoctorOn(ctx context.Context, doctorID string, day time.Time) (int, error) {
	d := day.In(s.loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
	return s.repo.CountByDoctorBetween(ctx, doctorID, start, start.AddDate(0, 0, 1))
}

// UpdateStatus applies a scheduled -> completed|cancelled transition. Doctors may
// change their own appointments and hospitals those booked with them.
func (s *Service) UpdateStatus(ctx context.Context, actor *auth.Identity, id string, req UpdateStatusRequest) (*Appointment, error) {
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, req.Status)
	}

	var followUp *time.Time
	if req.FollowUpDate != "" {
		if req.Status != StatusCompleted {
			return nil, fmt.Errorf("%w: follow-up date requires status completed", ErrInvalidRequest)
		}
		d, err := time.ParseInLocation("2006-01-02", req.FollowUpDate, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: follow-up date must be YYYY-MM-DD", ErrInvalidRequest)
		}
		followUp = &d
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, current) {
		return nil, ErrForbidden
	}
	if !current.Status.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, req.Status)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, req.Status, followUp)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.EventAppointmentStatusChanged, messaging.AppointmentStatusChangedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventAppointmentStatusChanged),
		Data: messaging.AppointmentStatusChangedData{
			AppointmentID: updated.ID,
			OldStatus:     string(current.Status),
			NewStatus:     string(updated.Status),
			FollowUpDate:  updated.FollowUp,
			ChangedBy:     actor.ID,
			ChangedAt:     time.Now().UTC(),
		},
	})
	return updated, nil
}

func canModify(actor *auth.Identity, a *Appointment) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case auth.RoleDoctor:
		return a.DoctorID == actor.ID
	case auth.RoleHospital:
		return a.HospitalID == actor.ID
	}
	return false
}

func (s *Service) publish(ctx context.Context, key string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("routing_key", key).Msg("failed to publish event")
	}
}
