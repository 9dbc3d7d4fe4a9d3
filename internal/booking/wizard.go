package booking

import "time"

// Step is a booking wizard page.
type Step int

const (
	StepSelectProvider Step = 1
	StepSelectDateTime Step = 2
	StepConfirm        Step = 3
)

// Draft is the in-progress booking of one browser session. Date is YYYY-MM-DD.
type Draft struct {
	Step       Step   `json:"step"`
	HospitalID string `json:"hospital_id,omitempty"`
	Specialty  string `json:"specialty,omitempty"`
	DoctorID   string `json:"doctor_id,omitempty"`
	Date       string `json:"date,omitempty"`
	TimeSlot   string `json:"time_slot,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// NewDraft starts at step 1 with the next bookable day preselected.
func NewDraft(today time.Time) *Draft {
	return &Draft{
		Step: StepSelectProvider,
		Date: NextBookableDay(today).Format(dateLayout),
	}
}

// SelectHospital clears specialty and doctor when the hospital changes.
func (d *Draft) SelectHospital(id string) {
	if id == d.HospitalID {
		return
	}
	d.HospitalID = id
	d.Specialty = ""
	d.DoctorID = ""
}

// SelectSpecialty clears the doctor when the specialty changes.
func (d *Draft) SelectSpecialty(s string) {
	if s == d.Specialty {
		return
	}
	d.Specialty = s
	d.DoctorID = ""
}

func (d *Draft) SelectDoctor(id string) {
	d.DoctorID = id
}

// SelectDate sets the date after checking it against today.
func (d *Draft) SelectDate(date string, today time.Time) error {
	day, err := ParseDate(date, today.Location())
	if err != nil {
		return err
	}
	if !IsBookable(day, today) {
		return ErrDateNotBookable
	}
	d.Date = day.Format(dateLayout)
	return nil
}

func (d *Draft) SelectTimeSlot(slot string) error {
	if !ValidSlot(slot) {
		return ErrInvalidSlot
	}
	d.TimeSlot = slot
	return nil
}

// CanAdvance reports whether Next is enabled on the current step.
func (d *Draft) CanAdvance() bool {
	switch d.Step {
	case StepSelectProvider:
		return d.HospitalID != "" && d.Specialty != "" && d.DoctorID != ""
	case StepSelectDateTime:
		return d.Complete()
	}
	return false
}

func (d *Draft) Next() error {
	if d.Step >= StepConfirm {
		return ErrLastStep
	}
	if !d.CanAdvance() {
		return ErrStepIncomplete
	}
	d.Step++
	return nil
}

// Back moves one step back and keeps every selection.
func (d *Draft) Back() {
	if d.Step > StepSelectProvider {
		d.Step--
	}
}

// Complete reports whether every field needed to submit is set.
func (d *Draft) Complete() bool {
	return d.HospitalID != "" && d.Specialty != "" && d.DoctorID != "" && d.Date != "" && d.TimeSlot != ""
}
