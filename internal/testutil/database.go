package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/WailSalutem-Health-Care/care-portal/internal/db"
)

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema.
// Tests are skipped when the variable is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	conn, err := db.Open(context.Background(), dsn, "care_portal_test")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TruncateAll empties every portal table.
func TruncateAll(t *testing.T, conn *sql.DB) {
	t.Helper()

	_, err := conn.Exec(`TRUNCATE medication_feedback, health_surveys, medicines, appointments,
		caretakers, patients, doctors, hospitals, profiles CASCADE`)
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

// InsertProfile adds a bare profile row and returns its id.
func InsertProfile(t *testing.T, conn *sql.DB, name, email, role string) string {
	t.Helper()

	id := uuid.NewString()
	if _, err := conn.Exec(`INSERT INTO profiles (id, name, email, role) VALUES ($1, $2, $3, $4)`,
		id, name, email, role); err != nil {
		t.Fatalf("Failed to insert profile: %v", err)
	}
	return id
}

// InsertHospital adds a hospital offering specialties and returns its id.
func InsertHospital(t *testing.T, conn *sql.DB, name string, specialties ...string) string {
	t.Helper()

	id := InsertProfile(t, conn, name, uuid.NewString()+"@hospital.test", "hospital")
	if _, err := conn.Exec(`INSERT INTO hospitals (id, specialties) VALUES ($1, $2)`,
		id, pq.Array(specialties)); err != nil {
		t.Fatalf("Failed to insert hospital: %v", err)
	}
	return id
}

// InsertDoctor adds a doctor working at hospitalID and returns its id.
func InsertDoctor(t *testing.T, conn *sql.DB, name, hospitalID, specialization string) string {
	t.Helper()

	id := InsertProfile(t, conn, name, uuid.NewString()+"@doctor.test", "doctor")
	if _, err := conn.Exec(`INSERT INTO doctors (id, hospital_id, specialization, qualification, experience)
		VALUES ($1, $2, $3, 'MD', 5)`, id, hospitalID, specialization); err != nil {
		t.Fatalf("Failed to insert doctor: %v", err)
	}
	return id
}

// InsertDoctorAt adds a hospital and a doctor working there. It returns both ids.
func InsertDoctorAt(t *testing.T, conn *sql.DB, specialization string) (hospitalID, doctorID string) {
	t.Helper()

	hospitalID = InsertHospital(t, conn, "General Hospital", specialization)
	doctorID = InsertDoctor(t, conn, "Dr. Test", hospitalID, specialization)
	return hospitalID, doctorID
}
