package prescription

import (
	"context"
	"sort"
	"time"

	"github.com/medsave/rxwizard/internal/domain/draft"
	"github.com/medsave/rxwizard/internal/platform/medsave"
)

const (
	noticeSubmit = "Failed to submit prescription."

	// bundleTimeLayout is RFC 3339 in UTC with milliseconds.
	bundleTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// BuildBundle assembles the save_prescription_bundle payload for doc. The
// hospital, its first doctor and the patient must have been saved.
func BuildBundle(doc draft.Document, now time.Time) (medsave.Bundle, error) {
	var doctorID string
	if len(doc.Hospital.Doctors) > 0 {
		doctorID = doc.Hospital.Doctors[0].ID
	}
	switch {
	case doc.Hospital.ID == "":
		return medsave.Bundle{}, ErrMissingHospital
	case doctorID == "":
		return medsave.Bundle{}, ErrMissingDoctor
	case doc.Patient.ID == "":
		return medsave.Bundle{}, ErrMissingPatient
	}

	m, t := doc.Medical, doc.Treatment
	b := medsave.Bundle{
		Prescription: medsave.BundlePrescription{
			PatientID:  doc.Patient.ID,
			DoctorID:   doctorID,
			HospitalID: doc.Hospital.ID,
			DateTime:   now.UTC().Format(bundleTimeLayout),
		},
		ChiefComplaints:    make([]medsave.BundleComplaint, 0, len(m.ChiefComplaints)),
		MedicalHistories:   make([]medsave.BundleMedicalHistory, 0, len(m.PastMedicalHistory.Conditions)),
		SurgicalHistories:  make([]medsave.BundleSurgicalHistory, 0, len(m.PastSurgicalHistory.Surgeries)),
		Hypersensitivities: make([]medsave.BundleHypersensitivity, 0, len(m.Hypersensitivity.Drugs)),
		Vitals: []medsave.BundleVitals{{
			Temperature:            m.Vitals.Temperature,
			TemperatureType:        m.Vitals.TemperatureType,
			Pulse:                  m.Vitals.Pulse,
			RespiratoryRate:        m.Vitals.RespiratoryRate,
			BloodPressureSystolic:  m.Vitals.BloodPressure.Systolic,
			BloodPressureDiastolic: m.Vitals.BloodPressure.Diastolic,
			BloodPressurePosition:  m.Vitals.BloodPressure.Position,
			PulseOximetry:          m.Vitals.PulseOximetry,
		}},
		PhysicalExams:  make([]medsave.BundlePhysicalExam, 0, len(m.PhysicalExam)),
		Investigations: make([]medsave.BundleInvestigation, 0, len(t.Investigations)),
		Diagnoses:      make([]medsave.BundleDiagnosis, 0, len(t.Diagnosis)),
		Medications:    make([]medsave.BundleMedication, 0, len(t.Medications)),
		Instructions: []medsave.BundleInstructions{{
			Dos:          t.Dos,
			Donts:        t.Donts,
			FollowUp:     t.FollowUp,
			FollowUpDate: t.FollowUpDate,
		}},
	}

	for _, c := range m.ChiefComplaints {
		b.ChiefComplaints = append(b.ChiefComplaints, medsave.BundleComplaint{Complaint: c})
	}
	for _, c := range m.PastMedicalHistory.Conditions {
		b.MedicalHistories = append(b.MedicalHistories, medsave.BundleMedicalHistory{
			Condition:  c.Name,
			OnsetDate:  c.Year + "-" + c.Month + "-" + c.Date,
			Medication: c.Medication,
		})
	}
	for _, sg := range m.PastSurgicalHistory.Surgeries {
		b.SurgicalHistories = append(b.SurgicalHistories, medsave.BundleSurgicalHistory{
			SurgeryType: sg.Type,
			SurgeryDate: sg.Year + "-" + sg.Month + "-" + sg.Date,
			Medication:  sg.Medication,
		})
	}
	for _, d := range m.Hypersensitivity.Drugs {
		b.Hypersensitivities = append(b.Hypersensitivities, medsave.BundleHypersensitivity{DrugName: d})
	}

	keys := make([]string, 0, len(m.PhysicalExam))
	for k := range m.PhysicalExam {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f := m.PhysicalExam[k]
		b.PhysicalExams = append(b.PhysicalExams, medsave.BundlePhysicalExam{
			ExamType:    k,
			IsNormal:    f.Normal,
			Description: f.Description,
		})
	}

	for _, inv := range t.Investigations {
		b.Investigations = append(b.Investigations, medsave.BundleInvestigation{InvestigationType: inv})
	}
	for _, d := range t.Diagnosis {
		b.Diagnoses = append(b.Diagnoses, medsave.BundleDiagnosis{Diagnosis: d})
	}
	for _, med := range t.Medications {
		b.Medications = append(b.Medications, medsave.BundleMedication{
			GenericName:        med.GenericName,
			BrandName:          med.BrandName,
			Manufacturer:       med.Manufacturer,
			Dosage:             med.Dosage,
			AdministrationTime: med.AdministrationTime,
			Duration:           med.Duration,
			Instructions:       med.Instructions,
		})
	}
	return b, nil
}

// Bundle returns the payload Submit would send now.
func (s *Service) Bundle(ctx context.Context, id string) (medsave.Bundle, error) {
	store, err := s.sessions.Get(ctx, id)
	if err != nil {
		return medsave.Bundle{}, err
	}
	return BuildBundle(store.Document(), s.clock.Now())
}

type Submission struct {
	PrescriptionID string                `json:"prescription_id"`
	Bundle         medsave.Bundle        `json:"bundle"`
	Receipt        medsave.BundleReceipt `json:"receipt"`
}

// Submit sends the draft as one prescription bundle. The draft is kept so
// the review page can still be printed.
func (s *Service) Submit(ctx context.Context, id string) (*Submission, error) {
	b, err := s.Bundle(ctx, id)
	if err != nil {
		return nil, err
	}
	receipt, err := s.records.SaveBundle(ctx, b)
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Str("patient_id", b.Prescription.PatientID).Msg("submit prescription")
		return nil, userError(noticeSubmit, err)
	}
	s.logger.Info().Str("draft_id", id).Str("prescription_id", receipt.PrescriptionRef()).Msg("prescription submitted")
	return &Submission{PrescriptionID: receipt.PrescriptionRef(), Bundle: b, Receipt: receipt}, nil
}
