package medsave

import (
	"context"
	"net/http"
	"strconv"
)

type Hospital struct {
	ID             FlexString `json:"id,omitempty"`
	Logo           string     `json:"logo"`
	Name           string     `json:"name"`
	RegistrationNo string     `json:"registration_no"`
	Accreditations string     `json:"accreditations"`
	Address        string     `json:"address"`
	Contact        FlexString `json:"contact"`
	Email          string     `json:"email"`
	Website        string     `json:"website"`
}

type Doctor struct {
	ID             FlexString `json:"id,omitempty"`
	HospitalID     FlexString `json:"hospital_id"`
	Name           string     `json:"name"`
	Designation    string     `json:"designation"`
	RegistrationNo string     `json:"registration_no"`
	Qualification  string     `json:"qualification"`
	Phone          FlexString `json:"phone"`
	Email          string     `json:"email"`
}

type Patient struct {
	ID                            FlexString `json:"id,omitempty"`
	RegistrationNo                string     `json:"registration_no"`
	AadhaarNumber                 FlexString `json:"aadhaar_number"`
	Title                         string     `json:"title"`
	FirstName                     string     `json:"first_name"`
	MiddleName                    string     `json:"middle_name"`
	LastName                      string     `json:"last_name"`
	Phone                         FlexString `json:"phone"`
	Email                         string     `json:"email"`
	GuardianTitle                 string     `json:"guardian_title"`
	GuardianFirstName             string     `json:"guardian_first_name"`
	GuardianMiddleName            string     `json:"guardian_middle_name"`
	GuardianLastName              string     `json:"guardian_last_name"`
	AddressLine1                  string     `json:"address_line1"`
	AddressLine2                  string     `json:"address_line2"`
	AddressDistrict               string     `json:"address_district"`
	AddressState                  string     `json:"address_state"`
	AddressCountry                string     `json:"address_country"`
	AddressPin                    FlexString `json:"address_pin"`
	DOB                           string     `json:"dob"`
	Age                           FlexString `json:"age"`
	AgeDisplay                    string     `json:"age_display"`
	Gender                        string     `json:"gender"`
	MaritalStatus                 string     `json:"marital_status"`
	Pregnancy                     FlexBool   `json:"pregnancy"`
	Breastfeeding                 FlexBool   `json:"breastfeeding"`
	Occupation                    string     `json:"occupation"`
	Weight                        FlexString `json:"weight"`
	Height                        FlexString `json:"height"`
	BMI                           FlexString `json:"bmi"`
	BloodGroup                    string     `json:"blood_group"`
	ReferredByDoctorName          string     `json:"referred_by_doctor_name"`
	ReferredByDoctorQualification string     `json:"referred_by_doctor_qualification"`
	ReferredByDoctorAddress       string     `json:"referred_by_doctor_address"`
	ReferredByHospitalName        string     `json:"referred_by_hospital_name"`
	ReferredByHospitalAddress     string     `json:"referred_by_hospital_address"`
}

type Prescription struct {
	ID         FlexString `json:"id"`
	PatientID  FlexString `json:"patient_id"`
	DoctorID   FlexString `json:"doctor_id"`
	HospitalID FlexString `json:"hospital_id"`
	DateTime   string     `json:"date_time"`
}

// MedicalHistory carries the condition either split into date parts or as a
// single onset_date, depending on which side of the API wrote it.
type MedicalHistory struct {
	ID             FlexString `json:"id"`
	PrescriptionID FlexString `json:"prescription_id"`
	ConditionName  string     `json:"condition_name"`
	Condition      string     `json:"condition"`
	ConditionDate  FlexString `json:"condition_date"`
	ConditionMonth FlexString `json:"condition_month"`
	ConditionYear  FlexString `json:"condition_year"`
	OnsetDate      string     `json:"onset_date"`
	Medication     string     `json:"medication"`
}

type SurgicalHistory struct {
	ID             FlexString `json:"id"`
	PrescriptionID FlexString `json:"prescription_id"`
	SurgeryType    string     `json:"surgery_type"`
	SurgeryDate    FlexString `json:"surgery_date"`
	SurgeryMonth   FlexString `json:"surgery_month"`
	SurgeryYear    FlexString `json:"surgery_year"`
	Medication     string     `json:"medication"`
}

type Hypersensitivity struct {
	ID             FlexString `json:"id"`
	PrescriptionID FlexString `json:"prescription_id"`
	DrugName       string     `json:"drug_name"`
	Name           string     `json:"name"`
}

type VitalSigns struct {
	ID                     FlexString `json:"id"`
	PrescriptionID         FlexString `json:"prescription_id"`
	Temperature            FlexString `json:"temperature"`
	TemperatureType        string     `json:"temperature_type"`
	Pulse                  FlexString `json:"pulse"`
	RespiratoryRate        FlexString `json:"respiratory_rate"`
	BloodPressureSystolic  FlexString `json:"blood_pressure_systolic"`
	BloodPressureDiastolic FlexString `json:"blood_pressure_diastolic"`
	BloodPressurePosition  string     `json:"blood_pressure_position"`
	PulseOximetry          FlexString `json:"pulse_oximetry"`
}

type PhysicalExam struct {
	ID             FlexString `json:"id"`
	PrescriptionID FlexString `json:"prescription_id"`
	ExamType       string     `json:"exam_type"`
	IsNormal       FlexBool   `json:"is_normal"`
	Description    string     `json:"description"`
}

func (c *Client) ListHospitals(ctx context.Context, opts ListOptions) (Page[Hospital], error) {
	return list[Hospital](ctx, c, Hospitals, opts)
}

func (c *Client) GetHospital(ctx context.Context, id string) (Hospital, error) {
	return get[Hospital](ctx, c, Hospitals, id)
}

func (c *Client) SaveHospital(ctx context.Context, id string, h Hospital) (string, error) {
	h.ID = ""
	return c.save(ctx, Hospitals, id, h)
}

func (c *Client) ListDoctors(ctx context.Context, opts ListOptions) (Page[Doctor], error) {
	return list[Doctor](ctx, c, Doctors, opts)
}

func (c *Client) GetDoctor(ctx context.Context, id string) (Doctor, error) {
	return get[Doctor](ctx, c, Doctors, id)
}

func (c *Client) SaveDoctor(ctx context.Context, id string, d Doctor) (string, error) {
	d.ID = ""
	return c.save(ctx, Doctors, id, d)
}

func (c *Client) ListPatients(ctx context.Context, opts ListOptions) (Page[Patient], error) {
	return list[Patient](ctx, c, Patients, opts)
}

func (c *Client) GetPatient(ctx context.Context, id string) (Patient, error) {
	return get[Patient](ctx, c, Patients, id)
}

func (c *Client) SavePatient(ctx context.Context, id string, p Patient) (string, error) {
	p.ID = ""
	return c.save(ctx, Patients, id, p)
}

// RegistrationNumbers returns one page of stored patient registration numbers.
func (c *Client) RegistrationNumbers(ctx context.Context, limit, offset int) ([]string, error) {
	q := map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}
	data, err := c.do(ctx, http.MethodGet, actionList, Patients, q, nil)
	if err != nil {
		return nil, err
	}
	page, err := decodeData[Page[struct {
		RegistrationNo string `json:"registration_no"`
	}]](data, actionList, Patients)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(page.Items))
	for i, it := range page.Items {
		out[i] = it.RegistrationNo
	}
	return out, nil
}

// ListPrescriptions returns the prescriptions of a patient, latest first.
func (c *Client) ListPrescriptions(ctx context.Context, patientID string) (Page[Prescription], error) {
	return list[Prescription](ctx, c, Prescriptions, byField("patient_id", patientID))
}

func (c *Client) ListMedicalHistories(ctx context.Context, prescriptionID string) (Page[MedicalHistory], error) {
	return list[MedicalHistory](ctx, c, MedicalHistories, byPrescription(prescriptionID))
}

func (c *Client) ListSurgicalHistories(ctx context.Context, prescriptionID string) (Page[SurgicalHistory], error) {
	return list[SurgicalHistory](ctx, c, SurgicalHistories, byPrescription(prescriptionID))
}

func (c *Client) ListHypersensitivities(ctx context.Context, prescriptionID string) (Page[Hypersensitivity], error) {
	return list[Hypersensitivity](ctx, c, Hypersensitivities, byPrescription(prescriptionID))
}

// ListVitals returns the vitals of a prescription, latest first.
func (c *Client) ListVitals(ctx context.Context, prescriptionID string) (Page[VitalSigns], error) {
	return list[VitalSigns](ctx, c, Vitals, byPrescription(prescriptionID))
}

func (c *Client) ListPhysicalExams(ctx context.Context, prescriptionID string) (Page[PhysicalExam], error) {
	return list[PhysicalExam](ctx, c, PhysicalExams, byPrescription(prescriptionID))
}

func byPrescription(id string) ListOptions {
	return byField("prescription_id", id)
}

func byField(name, value string) ListOptions {
	return ListOptions{Filters: map[string]string{name: value}}
}
