package booking

import "github.com/WailSalutem-Health-Care/care-portal/internal/directory"

// Specialties lists the specialties offered by hospitalID. Unset or unknown
// hospitals yield an empty list.
func Specialties(hospitals []directory.Hospital, hospitalID string) []string {
	if hospitalID == "" {
		return []string{}
	}
	for _, h := range hospitals {
		if h.ID == hospitalID {
			out := make([]string, len(h.Specialties))
			copy(out, h.Specialties)
			return out
		}
	}
	return []string{}
}

// Doctors filters doctors by hospital and specialization. It matches
// directory.Repository.ListDoctors for the same pair.
func Doctors(doctors []directory.Doctor, hospitalID, specialty string) []directory.Doctor {
	out := []directory.Doctor{}
	if hospitalID == "" || specialty == "" {
		return out
	}
	for _, d := range doctors {
		if d.HospitalID == hospitalID && d.Specialization == specialty {
			out = append(out, d)
		}
	}
	return out
}
