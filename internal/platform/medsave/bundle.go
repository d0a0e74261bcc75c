package medsave

import (
	"context"
	"net/http"
)

// Bundle is the payload of save_prescription_bundle: one encounter in a
// single call.
type Bundle struct {
	Prescription       BundlePrescription       `json:"prescription"`
	ChiefComplaints    []BundleComplaint        `json:"chief_complaints"`
	MedicalHistories   []BundleMedicalHistory   `json:"medical_histories"`
	SurgicalHistories  []BundleSurgicalHistory  `json:"surgical_histories"`
	Hypersensitivities []BundleHypersensitivity `json:"hypersensitivities"`
	Vitals             []BundleVitals           `json:"vitals"`
	PhysicalExams      []BundlePhysicalExam     `json:"physical_exams"`
	Investigations     []BundleInvestigation    `json:"investigations"`
	Diagnoses          []BundleDiagnosis        `json:"diagnoses"`
	Medications        []BundleMedication       `json:"medications"`
	Instructions       []BundleInstructions     `json:"instructions"`
}

type BundlePrescription struct {
	PatientID  string `json:"patient_id"`
	DoctorID   string `json:"doctor_id"`
	HospitalID string `json:"hospital_id"`
	DateTime   string `json:"date_time"`
}

type BundleComplaint struct {
	Complaint string `json:"complaint"`
}

type BundleMedicalHistory struct {
	Condition  string `json:"condition"`
	OnsetDate  string `json:"onset_date"`
	Medication string `json:"medication"`
}

type BundleSurgicalHistory struct {
	SurgeryType string `json:"surgery_type"`
	SurgeryDate string `json:"surgery_date"`
	Medication  string `json:"medication"`
}

type BundleHypersensitivity struct {
	DrugName string `json:"drug_name"`
}

type BundleVitals struct {
	Temperature            string `json:"temperature"`
	TemperatureType        string `json:"temperature_type"`
	Pulse                  string `json:"pulse"`
	RespiratoryRate        string `json:"respiratory_rate"`
	BloodPressureSystolic  string `json:"blood_pressure_systolic"`
	BloodPressureDiastolic string `json:"blood_pressure_diastolic"`
	BloodPressurePosition  string `json:"blood_pressure_position"`
	PulseOximetry          string `json:"pulse_oximetry"`
}

type BundlePhysicalExam struct {
	ExamType    string `json:"exam_type"`
	IsNormal    bool   `json:"is_normal"`
	Description string `json:"description"`
}

type BundleInvestigation struct {
	InvestigationType string `json:"investigation_type"`
}

type BundleDiagnosis struct {
	Diagnosis string `json:"diagnosis"`
}

type BundleMedication struct {
	GenericName        string `json:"generic_name"`
	BrandName          string `json:"brand_name"`
	Manufacturer       string `json:"manufacturer"`
	Dosage             string `json:"dosage"`
	AdministrationTime string `json:"administration_time"`
	Duration           string `json:"duration"`
	Instructions       string `json:"instructions"`
}

type BundleInstructions struct {
	Dos          string  `json:"dos"`
	Donts        string  `json:"donts"`
	FollowUp     string  `json:"follow_up"`
	FollowUpDate *string `json:"follow_up_date"`
}

// BundleReceipt is what the API reports back for a saved bundle.
type BundleReceipt struct {
	ID             FlexString `json:"id"`
	PrescriptionID FlexString `json:"prescription_id"`
}

// PrescriptionRef returns whichever id the API echoed.
func (r BundleReceipt) PrescriptionRef() string {
	if r.PrescriptionID != "" {
		return string(r.PrescriptionID)
	}
	return string(r.ID)
}

func (c *Client) SaveBundle(ctx context.Context, b Bundle) (BundleReceipt, error) {
	data, err := c.do(ctx, http.MethodPost, actionBundle, "", nil, b)
	if err != nil {
		return BundleReceipt{}, err
	}
	receipt, err := decodeData[BundleReceipt](data, actionBundle, "")
	if err != nil {
		// The bundle is stored once ok is true; an unexpected data shape
		// only loses the echoed id.
		c.logger.Warn().Err(err).Msg("bundle receipt not decodable")
		return BundleReceipt{}, nil
	}
	return receipt, nil
}
