package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/care-portal/internal/appointment"
	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/cache"
	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
	"github.com/WailSalutem-Health-Care/care-portal/internal/flash"
)

type mockDirectory struct {
	hospitals []directory.Hospital
	doctors   []directory.Doctor
	filters   []directory.DoctorFilter
}

func (m *mockDirectory) ListHospitals(ctx context.Context) ([]directory.Hospital, error) {
	return m.hospitals, nil
}

// ListDoctors applies the filter the way directory.Repository does.
func (m *mockDirectory) ListDoctors(ctx context.Context, f directory.DoctorFilter) ([]directory.Doctor, error) {
	m.filters = append(m.filters, f)
	out := []directory.Doctor{}
	for _, d := range m.doctors {
		if f.HospitalID != "" && d.HospitalID != f.HospitalID {
			continue
		}
		if f.Specialty != "" && d.Specialization != f.Specialty {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type mockBooker struct {
	bookFunc func(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	calls    []appointment.BookRequest
}

func (m *mockBooker) Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error) {
	m.calls = append(m.calls, req)
	if m.bookFunc != nil {
		return m.bookFunc(ctx, req)
	}
	a := &appointment.Appointment{ID: "a1", Status: appointment.StatusScheduled}
	return a, nil
}

var testPatient = &auth.Identity{ID: "p1", Name: "Pat Patient", Role: auth.RolePatient}

func newTestService(booker Booker) (*Service, *mockDirectory, *cache.MemoryCache) {
	dir := &mockDirectory{hospitals: testHospitals, doctors: testDoctors}
	mem := cache.NewMemoryCache()
	svc := NewService(dir, booker, NewDraftStore(mem, time.Hour), nil, time.UTC)
	svc.now = func() time.Time { return testToday }
	return svc, dir, mem
}

// walk drives the wizard to the confirmation step.
func walk(t *testing.T, svc *Service, sessionID string) {
	t.Helper()
	ctx := context.Background()
	steps := []func(context.Context, *Draft) error{
		svc.SelectHospital("hospital1"),
		svc.SelectSpecialty("Cardiology"),
		svc.SelectDoctor("d1"),
		svc.Next(),
		svc.SelectDate("2024-03-05"),
		svc.SelectTimeSlot("2:30 PM"),
		svc.Next(),
	}
	for i, step := range steps {
		if _, err := svc.Update(ctx, sessionID, testPatient, step); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}
}

// TestView_FetchesDoctorsWithBothFilters tests that doctors are fetched with hospital and specialty
func TestView_FetchesDoctorsWithBothFilters(t *testing.T) {
	svc, dir, _ := newTestService(&mockBooker{})
	ctx := context.Background()

	if _, err := svc.Update(ctx, "s1", testPatient, svc.SelectHospital("hospital1")); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(dir.filters) != 0 {
		t.Errorf("Expected no doctor fetch before a specialty is chosen, got %+v", dir.filters)
	}
	v, err := svc.Update(ctx, "s1", testPatient, svc.SelectSpecialty("Cardiology"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := directory.DoctorFilter{HospitalID: "hospital1", Specialty: "Cardiology"}
	if len(dir.filters) == 0 || dir.filters[len(dir.filters)-1] != want {
		t.Errorf("Expected filter %+v, got %+v", want, dir.filters)
	}
	if got := ids(v.Doctors); len(got) != 2 || got[0] != "d1" || got[1] != "d4" {
		t.Errorf("Expected [d1 d4], got %v", got)
	}
}

// TestView_DraftBelongsToPatient tests that another patient on the same session starts fresh
func TestView_DraftBelongsToPatient(t *testing.T) {
	svc, _, _ := newTestService(&mockBooker{})
	walk(t, svc, "s1")

	other := &auth.Identity{ID: "p2", Name: "Other Patient", Role: auth.RolePatient}
	v, err := svc.View(context.Background(), "s1", other)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if v.Draft.Step != StepSelectProvider || v.Draft.HospitalID != "" || v.Draft.DoctorID != "" || v.Draft.TimeSlot != "" {
		t.Errorf("Expected an empty draft, got %+v", v.Draft)
	}

	booker := &mockBooker{}
	svc.booker = booker
	if svc.Submit(context.Background(), flash.NewRecorder(), "s1", other, "") {
		t.Error("Expected the other patient to have nothing to submit")
	}
	if len(booker.calls) != 0 {
		t.Errorf("Expected no booking, got %d", len(booker.calls))
	}
}

// TestStart_DiscardsDraft tests that opening the wizard starts from step 1
func TestStart_DiscardsDraft(t *testing.T) {
	svc, _, mem := newTestService(&mockBooker{})
	walk(t, svc, "s1")

	v, err := svc.Start(context.Background(), "s1", testPatient)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if v.Draft.Step != StepSelectProvider || v.Draft.HospitalID != "" || v.Draft.Date != "2024-03-06" {
		t.Errorf("Expected a fresh draft, got %+v", v.Draft)
	}
	if exists, _ := mem.Exists(context.Background(), draftKey("s1", "p1")); exists {
		t.Error("Expected the stored draft to be gone")
	}
}

// TestDiscardSession tests that ending a session drops all of its drafts
func TestDiscardSession(t *testing.T) {
	svc, _, mem := newTestService(&mockBooker{})
	ctx := context.Background()
	walk(t, svc, "s1")
	walk(t, svc, "s2")

	if err := svc.drafts.DiscardSession(ctx, "s1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if exists, _ := mem.Exists(ctx, draftKey("s1", "p1")); exists {
		t.Error("Expected s1 draft to be discarded")
	}
	if exists, _ := mem.Exists(ctx, draftKey("s2", "p1")); !exists {
		t.Error("Expected s2 draft to survive")
	}
}

// TestUpdate_SelectionOutsideStep tests that selections are only accepted on their own step
func TestUpdate_SelectionOutsideStep(t *testing.T) {
	svc, _, _ := newTestService(&mockBooker{})
	ctx := context.Background()

	if _, err := svc.Update(ctx, "s1", testPatient, svc.SelectTimeSlot("9:00 AM")); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Expected ErrWrongStep for a slot on step 1, got: %v", err)
	}

	walk(t, svc, "s1")
	svc.Update(ctx, "s1", testPatient, svc.Back())
	if _, err := svc.Update(ctx, "s1", testPatient, svc.SelectHospital("hospital2")); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Expected ErrWrongStep for a hospital on step 2, got: %v", err)
	}
	v, _ := svc.View(ctx, "s1", testPatient)
	if v.Draft.HospitalID != "hospital1" || v.Draft.DoctorID != "d1" {
		t.Errorf("Expected provider selection intact, got %+v", v.Draft)
	}
}

// TestUpdate_InvalidSelection tests selections outside the directory
func TestUpdate_InvalidSelection(t *testing.T) {
	svc, _, _ := newTestService(&mockBooker{})
	ctx := context.Background()

	if _, err := svc.Update(ctx, "s1", testPatient, svc.SelectHospital("nope")); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("Expected ErrInvalidSelection, got: %v", err)
	}
	svc.Update(ctx, "s1", testPatient, svc.SelectHospital("hospital2"))
	if _, err := svc.Update(ctx, "s1", testPatient, svc.SelectSpecialty("Neurology")); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("Expected ErrInvalidSelection, got: %v", err)
	}
	svc.Update(ctx, "s1", testPatient, svc.SelectSpecialty("Cardiology"))
	if _, err := svc.Update(ctx, "s1", testPatient, svc.SelectDoctor("d1")); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("Expected ErrInvalidSelection for doctor of another hospital, got: %v", err)
	}
}

// TestView_Confirm tests the confirmation summary
func TestView_Confirm(t *testing.T) {
	svc, _, _ := newTestService(&mockBooker{})
	walk(t, svc, "s1")

	v, err := svc.View(context.Background(), "s1", testPatient)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if v.Confirm == nil {
		t.Fatal("Expected confirmation")
	}
	c := v.Confirm
	if c.HospitalName != "General Hospital" || c.DoctorName != "Dr. Heart" || c.PatientName != "Pat Patient" {
		t.Errorf("Unexpected names %+v", c)
	}
	if c.Date != "March 5, 2024" || c.TimeSlot != "2:30 PM" {
		t.Errorf("Unexpected date/time %+v", c)
	}
}

// TestSubmit_Success tests that a complete draft issues exactly one scheduled booking
func TestSubmit_Success(t *testing.T) {
	booker := &mockBooker{}
	svc, _, mem := newTestService(booker)
	walk(t, svc, "s1")

	rec := flash.NewRecorder()
	if ok := svc.Submit(context.Background(), rec, "s1", testPatient, "chest pain"); !ok {
		t.Fatalf("Expected success, notices: %+v", rec.Notices())
	}

	if len(booker.calls) != 1 {
		t.Fatalf("Expected exactly one booking, got %d", len(booker.calls))
	}
	req := booker.calls[0]
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if req.PatientID != "p1" || req.DoctorID != "d1" || req.HospitalID != "hospital1" || req.Notes != "chest pain" || !req.DateTime.Equal(want) {
		t.Errorf("Unexpected booking request %+v", req)
	}
	if rec.Redirect() != "/patient" {
		t.Errorf("Expected redirect /patient, got %q", rec.Redirect())
	}
	if n := rec.Notices(); len(n) != 1 || n[0].Message != "Appointment booked successfully!" {
		t.Errorf("Unexpected notices %+v", n)
	}
	if exists, _ := mem.Exists(context.Background(), draftKey("s1", "p1")); exists {
		t.Error("Expected draft to be discarded")
	}
}

// TestSubmit_Failure tests that a failed booking keeps the draft on the confirm step
func TestSubmit_Failure(t *testing.T) {
	booker := &mockBooker{
		bookFunc: func(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error) {
			return nil, errors.New("insert failed")
		},
	}
	svc, _, _ := newTestService(booker)
	walk(t, svc, "s1")

	rec := flash.NewRecorder()
	if ok := svc.Submit(context.Background(), rec, "s1", testPatient, ""); ok {
		t.Fatal("Expected failure")
	}
	if len(booker.calls) != 1 {
		t.Errorf("Expected one attempt and no retry, got %d", len(booker.calls))
	}
	if rec.Redirect() != "" {
		t.Errorf("Expected no navigation, got %q", rec.Redirect())
	}
	if n := rec.Notices(); len(n) != 1 || n[0].Kind != flash.KindError {
		t.Errorf("Expected one error notice, got %+v", n)
	}

	v, _ := svc.View(context.Background(), "s1", testPatient)
	if v.Draft.Step != StepConfirm || !v.Draft.Complete() {
		t.Errorf("Expected draft intact on confirm step, got %+v", v.Draft)
	}
}

// TestSubmit_Incomplete tests that an unfinished draft is never booked
func TestSubmit_Incomplete(t *testing.T) {
	booker := &mockBooker{}
	svc, _, _ := newTestService(booker)

	rec := flash.NewRecorder()
	if ok := svc.Submit(context.Background(), rec, "s1", testPatient, ""); ok {
		t.Fatal("Expected failure")
	}
	if len(booker.calls) != 0 {
		t.Errorf("Expected no booking, got %d", len(booker.calls))
	}
}

// TestSubmit_DateRolledOver tests that a draft dated before today is not booked
func TestSubmit_DateRolledOver(t *testing.T) {
	booker := &mockBooker{}
	svc, _, _ := newTestService(booker)
	walk(t, svc, "s1")

	svc.now = func() time.Time { return testToday.AddDate(0, 0, 1) }

	rec := flash.NewRecorder()
	if svc.Submit(context.Background(), rec, "s1", testPatient, "") {
		t.Fatal("Expected failure for a past date")
	}
	if len(booker.calls) != 0 {
		t.Errorf("Expected no booking, got %d", len(booker.calls))
	}
	if n := rec.Notices(); len(n) != 1 || n[0].Message != "Please select a valid date" {
		t.Errorf("Unexpected notices %+v", n)
	}
	v, _ := svc.View(context.Background(), "s1", testPatient)
	if v.Draft.Step != StepConfirm || v.Draft.Date != "2024-03-05" {
		t.Errorf("Expected draft kept for correction, got %+v", v.Draft)
	}
}
