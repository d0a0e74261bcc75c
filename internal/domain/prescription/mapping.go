package prescription

import (
	"strings"

	"github.com/medsave/rxwizard/internal/domain/draft"
	"github.com/medsave/rxwizard/internal/platform/medsave"
)

func hospitalFromRecord(h medsave.Hospital) draft.Hospital {
	return draft.Hospital{
		ID:             h.ID.String(),
		Logo:           h.Logo,
		Name:           h.Name,
		RegistrationNo: h.RegistrationNo,
		Accreditations: splitAccreditations(h.Accreditations),
		Address:        h.Address,
		Contact:        h.Contact.String(),
		Email:          h.Email,
		Website:        h.Website,
	}
}

func hospitalRecord(h draft.Hospital) medsave.Hospital {
	return medsave.Hospital{
		Logo:           h.Logo,
		Name:           h.Name,
		RegistrationNo: h.RegistrationNo,
		Accreditations: strings.Join(h.Accreditations, ","),
		Address:        h.Address,
		Contact:        medsave.FlexString(h.Contact),
		Email:          h.Email,
		Website:        h.Website,
	}
}

// splitAccreditations turns the API's comma separated list into entries.
func splitAccreditations(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func doctorFromRecord(d medsave.Doctor) draft.Doctor {
	return draft.Doctor{
		ID:             d.ID.String(),
		Name:           d.Name,
		Designation:    d.Designation,
		RegistrationNo: d.RegistrationNo,
		Qualification:  d.Qualification,
		Phone:          d.Phone.String(),
		Email:          d.Email,
	}
}

func doctorRecord(d draft.Doctor, hospitalID string) medsave.Doctor {
	return medsave.Doctor{
		HospitalID:     medsave.FlexString(hospitalID),
		Name:           d.Name,
		Designation:    d.Designation,
		RegistrationNo: d.RegistrationNo,
		Qualification:  d.Qualification,
		Phone:          medsave.FlexString(d.Phone),
		Email:          d.Email,
	}
}

// patientFromRecord maps a stored patient onto the draft patient section.
// Fields the API does not store (date_time, billing_info) are left empty.
func patientFromRecord(r medsave.Patient) draft.Patient {
	country := r.AddressCountry
	if country == "" {
		country = draft.DefaultCountry
	}
	return draft.Patient{
		ID:                 r.ID.String(),
		RegistrationNo:     r.RegistrationNo,
		Title:              r.Title,
		FirstName:          r.FirstName,
		MiddleName:         r.MiddleName,
		LastName:           r.LastName,
		Phone:              r.Phone.String(),
		Email:              r.Email,
		AadhaarNumber:      r.AadhaarNumber.String(),
		GuardianTitle:      r.GuardianTitle,
		GuardianFirstName:  r.GuardianFirstName,
		GuardianMiddleName: r.GuardianMiddleName,
		GuardianLastName:   r.GuardianLastName,
		Address: draft.Address{
			Line1:    r.AddressLine1,
			Line2:    r.AddressLine2,
			District: r.AddressDistrict,
			State:    r.AddressState,
			Country:  country,
			Pin:      r.AddressPin.String(),
		},
		ReferredBy: draft.ReferredBy{
			Doctor: draft.ReferringDoctor{
				Name:          r.ReferredByDoctorName,
				Qualification: r.ReferredByDoctorQualification,
				Address:       r.ReferredByDoctorAddress,
			},
			Hospital: draft.ReferringHospital{
				Name:    r.ReferredByHospitalName,
				Address: r.ReferredByHospitalAddress,
			},
		},
		DOB:           r.DOB,
		Age:           r.Age.String(),
		AgeDisplay:    r.AgeDisplay,
		Sex:           r.Gender,
		MaritalStatus: r.MaritalStatus,
		Occupation:    r.Occupation,
		Weight:        r.Weight.String(),
		Height:        r.Height.String(),
		BMI:           r.BMI.String(),
		BloodGroup:    r.BloodGroup,
		Pregnancy:     bool(r.Pregnancy),
		Breastfeeding: bool(r.Breastfeeding),
	}
}

func patientRecord(p draft.Patient) medsave.Patient {
	return medsave.Patient{
		RegistrationNo:                p.RegistrationNo,
		AadhaarNumber:                 medsave.FlexString(p.AadhaarNumber),
		Title:                         p.Title,
		FirstName:                     p.FirstName,
		MiddleName:                    p.MiddleName,
		LastName:                      p.LastName,
		Phone:                         medsave.FlexString(p.Phone),
		Email:                         p.Email,
		GuardianTitle:                 p.GuardianTitle,
		GuardianFirstName:             p.GuardianFirstName,
		GuardianMiddleName:            p.GuardianMiddleName,
		GuardianLastName:              p.GuardianLastName,
		AddressLine1:                  p.Address.Line1,
		AddressLine2:                  p.Address.Line2,
		AddressDistrict:               p.Address.District,
		AddressState:                  p.Address.State,
		AddressCountry:                p.Address.Country,
		AddressPin:                    medsave.FlexString(p.Address.Pin),
		DOB:                           p.DOB,
		Age:                           medsave.FlexString(p.Age),
		AgeDisplay:                    p.AgeDisplay,
		Gender:                        p.Sex,
		MaritalStatus:                 p.MaritalStatus,
		Pregnancy:                     medsave.FlexBool(p.Pregnancy),
		Breastfeeding:                 medsave.FlexBool(p.Breastfeeding),
		Occupation:                    p.Occupation,
		Weight:                        medsave.FlexString(p.Weight),
		Height:                        medsave.FlexString(p.Height),
		BMI:                           medsave.FlexString(p.BMI),
		BloodGroup:                    p.BloodGroup,
		ReferredByDoctorName:          p.ReferredBy.Doctor.Name,
		ReferredByDoctorQualification: p.ReferredBy.Doctor.Qualification,
		ReferredByDoctorAddress:       p.ReferredBy.Doctor.Address,
		ReferredByHospitalName:        p.ReferredBy.Hospital.Name,
		ReferredByHospitalAddress:     p.ReferredBy.Hospital.Address,
	}
}

// PatientSummary is one row of a patient search.
type PatientSummary struct {
	ID             string `json:"id"`
	RegistrationNo string `json:"registration_no"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Age            string `json:"age"`
	Sex            string `json:"sex"`
}

func summarize(r medsave.Patient) PatientSummary {
	return PatientSummary{
		ID:             r.ID.String(),
		RegistrationNo: r.RegistrationNo,
		Name:           FullName(r.Title, r.FirstName, r.MiddleName, r.LastName),
		Phone:          r.Phone.String(),
		Age:            r.Age.String(),
		Sex:            r.Gender,
	}
}

// FullName joins the non-empty name parts with single spaces.
func FullName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
