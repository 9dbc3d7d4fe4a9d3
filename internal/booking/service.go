package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/care-portal/internal/appointment"
	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
	"github.com/WailSalutem-Health-Care/care-portal/internal/flash"
)

const confirmDateLayout = "January 2, 2006"

// Directory is the provider lookup the wizard needs.
type Directory interface {
	ListHospitals(ctx context.Context) ([]directory.Hospital, error)
	ListDoctors(ctx context.Context, f directory.DoctorFilter) ([]directory.Doctor, error)
}

// Booker creates appointments.
type Booker interface {
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
}

// MetricsRecorder counts booking submissions.
type MetricsRecorder interface {
	RecordBooking(ctx context.Context, ok bool)
}

// View is everything the wizard page renders for the current step.
type View struct {
	Draft       *Draft               `json:"draft"`
	CanAdvance  bool                 `json:"can_advance"`
	Hospitals   []directory.Hospital `json:"hospitals"`
	Specialties []string             `json:"specialties"`
	Doctors     []directory.Doctor   `json:"doctors"`
	TimeSlots   []string             `json:"time_slots"`
	Confirm     *Confirmation        `json:"confirm,omitempty"`
}

// Confirmation is the summary shown on the last step.
type Confirmation struct {
	HospitalName string `json:"hospital_name"`
	Specialty    string `json:"specialty"`
	DoctorName   string `json:"doctor_name"`
	PatientName  string `json:"patient_name"`
	Date         string `json:"date"`
	TimeSlot     string `json:"time_slot"`
	Reason       string `json:"reason,omitempty"`
}

type Service struct {
	directory Directory
	booker    Booker
	drafts    *DraftStore
	metrics   MetricsRecorder
	loc       *time.Location
	now       func() time.Time
}

// NewService wires the wizard. loc is the clinic zone in which "today" is evaluated.
func NewService(dir Directory, booker Booker, drafts *DraftStore, metrics MetricsRecorder, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		directory: dir,
		booker:    booker,
		drafts:    drafts,
		metrics:   metrics,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// Start discards the patient's draft in this session and returns the view
// of a fresh one. It runs when the wizard is opened.
func (s *Service) Start(ctx context.Context, sessionID string, patient *auth.Identity) (*View, error) {
	if err := s.drafts.Delete(ctx, sessionID, patient.ID); err != nil {
		return nil, fmt.Errorf("failed to discard draft: %w", err)
	}
	return s.view(ctx, NewDraft(s.today()), patient)
}

// View loads the patient's draft and the choices available for it.
func (s *Service) View(ctx context.Context, sessionID string, patient *auth.Identity) (*View, error) {
	d, err := s.drafts.Load(ctx, sessionID, patient.ID, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return s.view(ctx, d, patient)
}

func (s *Service) view(ctx context.Context, d *Draft, patient *auth.Identity) (*View, error) {
	hospitals, err := s.directory.ListHospitals(ctx)
	if err != nil {
		return nil, err
	}
	doctors, err := s.doctorsFor(ctx, d.HospitalID, d.Specialty)
	if err != nil {
		return nil, err
	}

	v := &View{
		Draft:       d,
		CanAdvance:  d.CanAdvance(),
		Hospitals:   hospitals,
		Specialties: Specialties(hospitals, d.HospitalID),
		Doctors:     doctors,
		TimeSlots:   TimeSlots,
	}
	if d.Step == StepConfirm {
		v.Confirm = s.confirmation(d, hospitals, doctors, patient)
	}
	return v, nil
}

func (s *Service) doctorsFor(ctx context.Context, hospitalID, specialty string) ([]directory.Doctor, error) {
	if hospitalID == "" || specialty == "" {
		return []directory.Doctor{}, nil
	}
	list, err := s.directory.ListDoctors(ctx, directory.DoctorFilter{HospitalID: hospitalID, Specialty: specialty})
	if err != nil {
		return nil, err
	}
	return Doctors(list, hospitalID, specialty), nil
}

func (s *Service) confirmation(d *Draft, hospitals []directory.Hospital, doctors []directory.Doctor, patient *auth.Identity) *Confirmation {
	c := &Confirmation{
		HospitalName: directory.UnknownHospital,
		Specialty:    d.Specialty,
		DoctorName:   directory.UnknownDoctor,
		TimeSlot:     d.TimeSlot,
		Reason:       d.Reason,
	}
	for _, h := range hospitals {
		if h.ID == d.HospitalID && h.Name != "" {
			c.HospitalName = h.Name
		}
	}
	for _, doc := range doctors {
		if doc.ID == d.DoctorID && doc.Name != "" {
			c.DoctorName = doc.Name
		}
	}
	if patient != nil {
		c.PatientName = patient.Name
	}
	if day, err := ParseDate(d.Date, s.loc); err == nil {
		c.Date = day.Format(confirmDateLayout)
	}
	return c
}

// Update applies a change to the patient's draft, stores it and returns the new view.
func (s *Service) Update(ctx context.Context, sessionID string, patient *auth.Identity, change func(ctx context.Context, d *Draft) error) (*View, error) {
	d, err := s.drafts.Load(ctx, sessionID, patient.ID, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if err := change(ctx, d); err != nil {
		return nil, err
	}
	if err := s.drafts.Save(ctx, sessionID, patient.ID, d); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return s.view(ctx, d, patient)
}

// SelectHospital returns a change that picks a hospital from the directory.
func (s *Service) SelectHospital(id string) func(context.Context, *Draft) error {
	return func(ctx context.Context, d *Draft) error {
		if d.Step != StepSelectProvider {
			return ErrWrongStep
		}
		hospitals, err := s.directory.ListHospitals(ctx)
		if err != nil {
			return err
		}
		for _, h := range hospitals {
			if h.ID == id {
				d.SelectHospital(id)
				return nil
			}
		}
		return fmt.Errorf("%w: hospital %q", ErrInvalidSelection, id)
	}
}

// SelectSpecialty returns a change that picks one of the selected hospital's specialties.
func (s *Service) SelectSpecialty(specialty string) func(context.Context, *Draft) error {
	return func(ctx context.Context, d *Draft) error {
		if d.Step != StepSelectProvider {
			return ErrWrongStep
		}
		hospitals, err := s.directory.ListHospitals(ctx)
		if err != nil {
			return err
		}
		for _, sp := range Specialties(hospitals, d.HospitalID) {
			if sp == specialty {
				d.SelectSpecialty(specialty)
				return nil
			}
		}
		return fmt.Errorf("%w: specialty %q", ErrInvalidSelection, specialty)
	}
}

// SelectDoctor returns a change that picks a doctor matching hospital and specialty.
func (s *Service) SelectDoctor(id string) func(context.Context, *Draft) error {
	return func(ctx context.Context, d *Draft) error {
		if d.Step != StepSelectProvider {
			return ErrWrongStep
		}
		doctors, err := s.doctorsFor(ctx, d.HospitalID, d.Specialty)
		if err != nil {
			return err
		}
		for _, doc := range doctors {
			if doc.ID == id {
				d.SelectDoctor(id)
				return nil
			}
		}
		return fmt.Errorf("%w: doctor %q", ErrInvalidSelection, id)
	}
}

func (s *Service) SelectDate(date string) func(context.Context, *Draft) error {
	return func(_ context.Context, d *Draft) error {
		if d.Step != StepSelectDateTime {
			return ErrWrongStep
		}
		return d.SelectDate(date, s.today())
	}
}

func (s *Service) SelectTimeSlot(slot string) func(context.Context, *Draft) error {
	return func(_ context.Context, d *Draft) error {
		if d.Step != StepSelectDateTime {
			return ErrWrongStep
		}
		return d.SelectTimeSlot(slot)
	}
}

func (s *Service) Next() func(context.Context, *Draft) error {
	return func(_ context.Context, d *Draft) error {
		return d.Next()
	}
}

func (s *Service) Back() func(context.Context, *Draft) error {
	return func(_ context.Context, d *Draft) error {
		d.Back()
		return nil
	}
}

// Submit books the draft with exactly one create request. On failure the
// draft stays on the confirmation step for another attempt by the user.
func (s *Service) Submit(ctx context.Context, sink flash.Sink, sessionID string, patient *auth.Identity, reason string) bool {
	logger := log.Ctx(ctx)

	d, err := s.drafts.Load(ctx, sessionID, patient.ID, s.today())
	if err != nil {
		logger.Error().Err(err).Msg("failed to load booking draft")
		flash.Error(sink, "Failed to book appointment")
		return false
	}
	if reason != "" {
		d.Reason = reason
	}
	if d.Step != StepConfirm || !d.Complete() {
		flash.Error(sink, "Please complete all booking steps")
		return false
	}

	// the draft may have been chosen before the clinic day rolled over
	day, err := ParseDate(d.Date, s.loc)
	if err != nil || !IsBookable(day, s.today()) {
		flash.Error(sink, "Please select a valid date")
		return false
	}
	when, err := ComposeDateTime(day, d.TimeSlot)
	if err != nil {
		flash.Error(sink, "Please select a valid time slot")
		return false
	}

	_, err = s.booker.Book(ctx, appointment.BookRequest{
		PatientID:  patient.ID,
		DoctorID:   d.DoctorID,
		HospitalID: d.HospitalID,
		DateTime:   when,
		Notes:      d.Reason,
	})
	s.recordBooking(ctx, err == nil)
	if err != nil {
		logger.Error().Err(err).Str("doctor_id", d.DoctorID).Msg("failed to book appointment")
		if saveErr := s.drafts.Save(ctx, sessionID, patient.ID, d); saveErr != nil {
			logger.Warn().Err(saveErr).Msg("failed to keep booking draft")
		}
		flash.Error(sink, "Failed to book appointment")
		return false
	}

	if err := s.drafts.Delete(ctx, sessionID, patient.ID); err != nil {
		logger.Warn().Err(err).Msg("failed to discard booking draft")
	}
	logger.Info().Str("patient_id", patient.ID).Str("doctor_id", d.DoctorID).Msg("✓ Appointment booked")
	flash.Success(sink, "Appointment booked successfully!")
	sink.Navigate("/patient")
	return true
}

func (s *Service) recordBooking(ctx context.Context, ok bool) {
	if s.metrics != nil {
		s.metrics.RecordBooking(ctx, ok)
	}
}
