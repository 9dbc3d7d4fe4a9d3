// Package seed fills an empty portal database with fake hospitals, doctors,
// patients and caretakers for demos and local development.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Specialties are the departments seeded hospitals choose from.
var Specialties = []string{
	"Cardiology",
	"Dermatology",
	"Neurology",
	"Oncology",
	"Ophthalmology",
	"General Medicine",
	"Pediatrics",
	"Orthopedics",
}

var (
	qualifications = []string{"MD", "MBBS", "DO", "MD, PhD"}
	bloodGroups    = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	relationships  = []string{"Spouse", "Child", "Sibling", "Parent", "Friend"}
)

type Options struct {
	Hospitals          int
	DoctorsPerHospital int
	Patients           int
	// PatientsPerCaretaker groups patients under one caretaker; 0 seeds none.
	PatientsPerCaretaker int
	// Seed makes the generated data reproducible.
	Seed uint64
}

// Result counts the rows created.
type Result struct {
	Hospitals  int
	Doctors    int
	Patients   int
	Caretakers int
}

type Seeder struct {
	db   *sql.DB
	fake *gofakeit.Faker
	seq  int
}

func New(db *sql.DB, seed uint64) *Seeder {
	return &Seeder{db: db, fake: gofakeit.New(seed)}
}

// Run inserts everything in a single transaction.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res := &Result{}
	for i := 0; i < opts.Hospitals; i++ {
		hospitalID, specialties, err := s.hospital(ctx, tx)
		if err != nil {
			return nil, err
		}
		res.Hospitals++
		for j := 0; j < opts.DoctorsPerHospital; j++ {
			if err := s.doctor(ctx, tx, hospitalID, specialties[j%len(specialties)]); err != nil {
				return nil, err
			}
			res.Doctors++
		}
	}

	var group []string
	for i := 0; i < opts.Patients; i++ {
		id, err := s.patient(ctx, tx)
		if err != nil {
			return nil, err
		}
		res.Patients++
		if opts.PatientsPerCaretaker <= 0 {
			continue
		}
		group = append(group, id)
		if len(group) == opts.PatientsPerCaretaker || i == opts.Patients-1 {
			if err := s.caretaker(ctx, tx, group); err != nil {
				return nil, err
			}
			res.Caretakers++
			group = nil
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed data: %w", err)
	}
	log.Ctx(ctx).Info().
		Int("hospitals", res.Hospitals).
		Int("doctors", res.Doctors).
		Int("patients", res.Patients).
		Int("caretakers", res.Caretakers).
		Msg("✓ seed data inserted")
	return res, nil
}

// email is unique per run; the faker alone can repeat names.
func (s *Seeder) email(name, domain string) string {
	s.seq++
	local := strings.ToLower(strings.Join(strings.Fields(name), "."))
	return fmt.Sprintf("%s.%d@%s", local, s.seq, domain)
}

func (s *Seeder) profile(ctx context.Context, tx *sql.Tx, name, domain, role string) (string, error) {
	id := uuid.NewString()
	_, err := tx.ExecContext(ctx, `INSERT INTO profiles (id, name, email, role) VALUES ($1, $2, $3, $4)`,
		id, name, s.email(name, domain), role)
	if err != nil {
		return "", fmt.Errorf("failed to insert %s profile: %w", role, err)
	}
	return id, nil
}

func (s *Seeder) hospital(ctx context.Context, tx *sql.Tx) (string, []string, error) {
	name := s.fake.LastName() + " " + s.fake.RandomString([]string{"General Hospital", "Medical Center", "Clinic"})
	id, err := s.profile(ctx, tx, name, "hospital.example", "hospital")
	if err != nil {
		return "", nil, err
	}

	specialties := append([]string(nil), Specialties...)
	s.fake.ShuffleStrings(specialties)
	specialties = specialties[:s.fake.Number(2, 4)]

	addr := s.fake.Address()
	_, err = tx.ExecContext(ctx, `INSERT INTO hospitals (id, address, phone, specialties) VALUES ($1, $2, $3, $4)`,
		id, fmt.Sprintf("%s, %s", addr.Street, addr.City), s.fake.Phone(), pq.Array(specialties))
	if err != nil {
		return "", nil, fmt.Errorf("failed to insert hospital: %w", err)
	}
	return id, specialties, nil
}

func (s *Seeder) doctor(ctx context.Context, tx *sql.Tx, hospitalID, specialization string) error {
	id, err := s.profile(ctx, tx, "Dr. "+s.fake.Name(), "doctor.example", "doctor")
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO doctors (id, hospital_id, specialization, qualification, experience)
		VALUES ($1, $2, $3, $4, $5)
	`, id, hospitalID, specialization, s.fake.RandomString(qualifications), s.fake.Number(1, 30))
	if err != nil {
		return fmt.Errorf("failed to insert doctor: %w", err)
	}
	return nil
}

func (s *Seeder) patient(ctx context.Context, tx *sql.Tx) (string, error) {
	id, err := s.profile(ctx, tx, s.fake.Name(), "patient.example", "patient")
	if err != nil {
		return "", err
	}
	now := time.Now()
	dob := s.fake.DateRange(now.AddDate(-90, 0, 0), now.AddDate(-18, 0, 0))
	_, err = tx.ExecContext(ctx, `
		INSERT INTO patients (id, dob, gender, blood_group)
		VALUES ($1, $2, $3, $4)
	`, id, dob, s.fake.Gender(), s.fake.RandomString(bloodGroups))
	if err != nil {
		return "", fmt.Errorf("failed to insert patient: %w", err)
	}
	return id, nil
}

func (s *Seeder) caretaker(ctx context.Context, tx *sql.Tx, patientIDs []string) error {
	id, err := s.profile(ctx, tx, s.fake.Name(), "caretaker.example", "caretaker")
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO caretakers (id, patient_ids, phone, relationship)
		VALUES ($1, $2::uuid[], $3, $4)
	`, id, pq.Array(patientIDs), s.fake.Phone(), s.fake.RandomString(relationships))
	if err != nil {
		return fmt.Errorf("failed to insert caretaker: %w", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE patients SET caretaker_id = $1 WHERE id = ANY($2::uuid[])`, id, pq.Array(patientIDs))
	if err != nil {
		return fmt.Errorf("failed to link caretaker: %w", err)
	}
	return nil
}
