package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WailSalutem-Health-Care/care-portal/internal/appointment"
	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
	"github.com/WailSalutem-Health-Care/care-portal/internal/medication"
	"github.com/WailSalutem-Health-Care/care-portal/internal/pagination"
	"github.com/WailSalutem-Health-Care/care-portal/internal/profile"
	"github.com/WailSalutem-Health-Care/care-portal/internal/survey"
)

const recentSurveys = 5

type Appointments interface {
	ListForPatient(ctx context.Context, patientID string) ([]appointment.PatientAppointment, error)
	ListForDoctor(ctx context.Context, doctorID string, params pagination.Params) (*appointment.DoctorAppointmentPage, error)
	UpcomingForPatients(ctx context.Context, patientIDs []string, from time.Time) ([]appointment.PatientAppointment, error)
	CountForDoctorOn(ctx context.Context, doctorID string, day time.Time) (int, error)
}

type Medicines interface {
	ListForPatient(ctx context.Context, patientID string) ([]medication.Medicine, error)
}

type Surveys interface {
	ListForPatient(ctx context.Context, patientID string, limit int) ([]survey.Survey, error)
	LatestForPatients(ctx context.Context, patientIDs []string) (map[string]survey.Survey, error)
}

type Directory interface {
	GetHospital(ctx context.Context, id string) (*directory.Hospital, error)
	ListDoctors(ctx context.Context, f directory.DoctorFilter) ([]directory.Doctor, error)
}

type Profiles interface {
	GetCaretaker(ctx context.Context, id string) (*profile.Caretaker, error)
	ListPatients(ctx context.Context, ids []string) ([]profile.Patient, error)
}

type PatientDashboard struct {
	User          *auth.Identity                   `json:"user"`
	Upcoming      []appointment.PatientAppointment `json:"upcoming_appointments"`
	Past          []appointment.PatientAppointment `json:"past_appointments"`
	Medicines     []medication.Medicine            `json:"medicines"`
	RecentSurveys []survey.Survey                  `json:"recent_surveys"`
}

type DoctorDashboard struct {
	User         *auth.Identity                     `json:"user"`
	TodayCount   int                                `json:"today_count"`
	Appointments *appointment.DoctorAppointmentPage `json:"appointments"`
}

type HospitalDashboard struct {
	User        *auth.Identity      `json:"user"`
	Hospital    *directory.Hospital `json:"hospital"`
	Doctors     []directory.Doctor  `json:"doctors"`
	Specialties []string            `json:"specialties"`
}

// CaredPatient is one patient on a caretaker's dashboard.
type CaredPatient struct {
	profile.PatientSummary
	LatestSurvey *survey.Survey                   `json:"latest_survey,omitempty"`
	Upcoming     []appointment.PatientAppointment `json:"upcoming_appointments"`
}

type CaretakerDashboard struct {
	User     *auth.Identity `json:"user"`
	Patients []CaredPatient `json:"patients"`
}

type Service struct {
	appointments Appointments
	medicines    Medicines
	surveys      Surveys
	directory    Directory
	profiles     Profiles
	now          func() time.Time
}

func NewService(appointments Appointments, medicines Medicines, surveys Surveys, dir Directory, profiles Profiles) *Service {
	return &Service{
		appointments: appointments,
		medicines:    medicines,
		surveys:      surveys,
		directory:    dir,
		profiles:     profiles,
		now:          time.Now,
	}
}

// Patient loads appointments, medicines and recent surveys concurrently.
func (s *Service) Patient(ctx context.Context, user *auth.Identity) (*PatientDashboard, error) {
	d := &PatientDashboard{User: user}
	var all []appointment.PatientAppointment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.appointments.ListForPatient(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		d.Medicines, err = s.medicines.ListForPatient(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		d.RecentSurveys, err = s.surveys.ListForPatient(gctx, user.ID, recentSurveys)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load patient dashboard: %w", err)
	}

	now := s.now()
	d.Upcoming = []appointment.PatientAppointment{}
	d.Past = []appointment.PatientAppointment{}
	for _, a := range all {
		if a.Status == appointment.StatusScheduled && !a.DateTime.Before(now) {
			d.Upcoming = append(d.Upcoming, a)
		} else {
			d.Past = append(d.Past, a)
		}
	}
	return d, nil
}

func (s *Service) Doctor(ctx context.Context, user *auth.Identity, params pagination.Params) (*DoctorDashboard, error) {
	d := &DoctorDashboard{User: user}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.TodayCount, err = s.appointments.CountForDoctorOn(gctx, user.ID, s.now())
		return err
	})
	g.Go(func() error {
		var err error
		d.Appointments, err = s.appointments.ListForDoctor(gctx, user.ID, params)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load doctor dashboard: %w", err)
	}
	return d, nil
}

func (s *Service) Hospital(ctx context.Context, user *auth.Identity) (*HospitalDashboard, error) {
	h, err := s.directory.GetHospital(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	doctors, err := s.directory.ListDoctors(ctx, directory.DoctorFilter{HospitalID: user.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load hospital doctors: %w", err)
	}
	specialties := h.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return &HospitalDashboard{User: user, Hospital: h, Doctors: doctors, Specialties: specialties}, nil
}

// Caretaker lists every patient under care with their latest survey and upcoming appointments.
func (s *Service) Caretaker(ctx context.Context, user *auth.Identity) (*CaretakerDashboard, error) {
	c, err := s.profiles.GetCaretaker(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	d := &CaretakerDashboard{User: user, Patients: []CaredPatient{}}
	if len(c.PatientIDs) == 0 {
		return d, nil
	}

	var (
		patients []profile.Patient
		latest   map[string]survey.Survey
		upcoming []appointment.PatientAppointment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patients, err = s.profiles.ListPatients(gctx, c.PatientIDs)
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = s.surveys.LatestForPatients(gctx, c.PatientIDs)
		return err
	})
	g.Go(func() error {
		var err error
		upcoming, err = s.appointments.UpcomingForPatients(gctx, c.PatientIDs, s.now())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load caretaker dashboard: %w", err)
	}

	byPatient := map[string][]appointment.PatientAppointment{}
	for _, a := range upcoming {
		byPatient[a.PatientID] = append(byPatient[a.PatientID], a)
	}
	for _, p := range patients {
		cp := CaredPatient{PatientSummary: p.Summary(), Upcoming: byPatient[p.ID]}
		if cp.Upcoming == nil {
			cp.Upcoming = []appointment.PatientAppointment{}
		}
		if sv, ok := latest[p.ID]; ok {
			cp.LatestSurvey = &sv
		}
		d.Patients = append(d.Patients, cp)
	}
	return d, nil
}
