package seed

import (
	"context"
	"testing"

	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
	"github.com/WailSalutem-Health-Care/care-portal/internal/profile"
	"github.com/WailSalutem-Health-Care/care-portal/internal/testutil"
)

// TestSeeder_Run tests that seeded rows are reachable through the repositories
func TestSeeder_Run(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.TruncateAll(t, db)
	ctx := context.Background()

	res, err := New(db, 42).Run(ctx, Options{Hospitals: 2, DoctorsPerHospital: 3, Patients: 5, PatientsPerCaretaker: 2})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if res.Hospitals != 2 || res.Doctors != 6 || res.Patients != 5 || res.Caretakers != 3 {
		t.Errorf("Unexpected result %+v", res)
	}

	dir := directory.NewRepository(db)
	hospitals, err := dir.ListHospitals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hospitals {
		doctors, err := dir.ListDoctors(ctx, directory.DoctorFilter{HospitalID: h.ID})
		if err != nil {
			t.Fatal(err)
		}
		for _, d := range doctors {
			if !contains(h.Specialties, d.Specialization) {
				t.Errorf("Doctor specialization %q not offered by %s", d.Specialization, h.Name)
			}
		}
	}

	var caretakerID string
	if err := db.QueryRow(`SELECT id FROM caretakers LIMIT 1`).Scan(&caretakerID); err != nil {
		t.Fatal(err)
	}
	c, err := profile.NewRepository(db).GetCaretaker(ctx, caretakerID)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.PatientIDs) == 0 {
		t.Error("Expected caretaker to have patients")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
