package draft

// DefaultCountry is the value the patient address country falls back to.
const DefaultCountry = "India"

// Section names one of the four top-level partitions of a Document.
type Section string

const (
	SectionHospital  Section = "hospital"
	SectionPatient   Section = "patient"
	SectionMedical   Section = "medical"
	SectionTreatment Section = "treatment"
)

// Sections lists the sections in wizard order.
var Sections = []Section{SectionHospital, SectionPatient, SectionMedical, SectionTreatment}

func (s Section) Valid() bool {
	switch s {
	case SectionHospital, SectionPatient, SectionMedical, SectionTreatment:
		return true
	}
	return false
}

// ExamKeys is the fixed set of body-system keys carried by Medical.PhysicalExam.
var ExamKeys = []string{
	"eyes",
	"HEENT",
	"neck",
	"chestLungs",
	"cardiovascular",
	"abdomen",
	"genitourinary",
	"rectal",
	"musculoskeletal",
	"lymphNodes",
	"extremities",
	"skin",
	"neurological",
	"other",
}

// IsExamKey reports whether key belongs to the fixed body-system set.
func IsExamKey(key string) bool {
	for _, k := range ExamKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Document is the in-progress prescription for one encounter.
type Document struct {
	Hospital  Hospital  `json:"hospital"`
	Patient   Patient   `json:"patient"`
	Medical   Medical   `json:"medical"`
	Treatment Treatment `json:"treatment"`
}

type Hospital struct {
	ID             string   `json:"id"`
	Logo           string   `json:"logo"`
	Name           string   `json:"name"`
	RegistrationNo string   `json:"registration_no"`
	Accreditations []string `json:"accreditations"`
	Address        string   `json:"address"`
	Contact        string   `json:"contact"`
	Email          string   `json:"email"`
	Website        string   `json:"website"`
	Doctors        []Doctor `json:"doctors"`
}

type Doctor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Designation    string `json:"designation"`
	RegistrationNo string `json:"registration_no"`
	Qualification  string `json:"qualification"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
}

type Patient struct {
	ID                 string      `json:"id"`
	ExistingPatientID  string      `json:"existing_patient_id"`
	RegistrationNo     string      `json:"registration_no"`
	DateTime           string      `json:"date_time"`
	Title              string      `json:"title"`
	FirstName          string      `json:"first_name"`
	MiddleName         string      `json:"middle_name"`
	LastName           string      `json:"last_name"`
	Phone              string      `json:"phone"`
	Email              string      `json:"email"`
	AadhaarNumber      string      `json:"aadhaar_number"`
	GuardianTitle      string      `json:"guardian_title"`
	GuardianFirstName  string      `json:"guardian_first_name"`
	GuardianMiddleName string      `json:"guardian_middle_name"`
	GuardianLastName   string      `json:"guardian_last_name"`
	Address            Address     `json:"address"`
	ReferredBy         ReferredBy  `json:"referred_by"`
	DOB                string      `json:"dob"`
	Age                string      `json:"age"`
	AgeDisplay         string      `json:"age_display"`
	Sex                string      `json:"sex"`
	MaritalStatus      string      `json:"marital_status"`
	Occupation         string      `json:"occupation"`
	Weight             string      `json:"weight"`
	Height             string      `json:"height"`
	BMI                string      `json:"bmi"`
	BloodGroup         string      `json:"blood_group"`
	Pregnancy          bool        `json:"pregnancy"`
	Breastfeeding      bool        `json:"breastfeeding"`
	BillingInfo        BillingInfo `json:"billing_info"`
}

type Address struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	District string `json:"district"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Pin      string `json:"pin"`
}

type ReferredBy struct {
	Doctor   ReferringDoctor   `json:"doctor"`
	Hospital ReferringHospital `json:"hospital"`
}

type ReferringDoctor struct {
	Name          string `json:"name"`
	Qualification string `json:"qualification"`
	Address       string `json:"address"`
}

type ReferringHospital struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type BillingInfo struct {
	PaymentMethod     string `json:"payment_method"`
	InsuranceProvider string `json:"insurance_provider"`
	PolicyNumber      string `json:"policy_number"`
}

type Medical struct {
	ChiefComplaints     []string               `json:"chief_complaints"`
	PastMedicalHistory  PastMedicalHistory     `json:"past_medical_history"`
	PastSurgicalHistory PastSurgicalHistory    `json:"past_surgical_history"`
	Hypersensitivity    Hypersensitivity       `json:"hypersensitivity"`
	Vitals              Vitals                 `json:"vitals"`
	PhysicalExam        map[string]ExamFinding `json:"physical_exam"`
}

type PastMedicalHistory struct {
	HasHistory bool           `json:"has_history"`
	Conditions []HistoryEntry `json:"conditions"`
}

// HistoryEntry is a past condition with a day/month/year onset split across fields.
type HistoryEntry struct {
	Name       string `json:"name"`
	Date       string `json:"date"`
	Month      string `json:"month"`
	Year       string `json:"year"`
	Medication string `json:"medication"`
}

type PastSurgicalHistory struct {
	HasHistory bool           `json:"has_history"`
	Surgeries  []SurgeryEntry `json:"surgeries"`
}

type SurgeryEntry struct {
	Type       string `json:"type"`
	Date       string `json:"date"`
	Month      string `json:"month"`
	Year       string `json:"year"`
	Medication string `json:"medication"`
}

type Hypersensitivity struct {
	HasHypersensitivity bool     `json:"has_hypersensitivity"`
	Drugs               []string `json:"drugs"`
	CustomDrug          string   `json:"custom_drug"`
}

type Vitals struct {
	Temperature     string        `json:"temperature"`
	TemperatureType string        `json:"temperature_type"`
	Pulse           string        `json:"pulse"`
	PulseOximetry   string        `json:"pulse_oximetry"`
	RespiratoryRate string        `json:"respiratory_rate"`
	BloodPressure   BloodPressure `json:"blood_pressure"`
}

type BloodPressure struct {
	Systolic  string `json:"systolic"`
	Diastolic string `json:"diastolic"`
	Position  string `json:"position"`
}

type ExamFinding struct {
	Normal      bool   `json:"normal"`
	Description string `json:"description"`
}

type Treatment struct {
	Investigations []string     `json:"investigations"`
	Diagnosis      []string     `json:"diagnosis"`
	Medications    []Medication `json:"medications"`
	Dos            string       `json:"dos"`
	Donts          string       `json:"donts"`
	FollowUp       string       `json:"follow_up"`
	FollowUpDate   *string      `json:"follow_up_date"`
}

type Medication struct {
	SNo                int    `json:"sno"`
	GenericName        string `json:"generic_name"`
	BrandName          string `json:"brand_name"`
	Manufacturer       string `json:"manufacturer"`
	Dosage             string `json:"dosage"`
	AdministrationTime string `json:"administration_time"`
	Duration           string `json:"duration"`
	Instructions       string `json:"instructions"`
}

// New returns the all-empty template every wizard session starts from.
func New() Document {
	return Document{
		Hospital:  NewHospital(),
		Patient:   NewPatient(),
		Medical:   NewMedical(),
		Treatment: NewTreatment(),
	}
}

func NewHospital() Hospital {
	return Hospital{
		Accreditations: []string{},
		Doctors:        []Doctor{{}},
	}
}

func NewPatient() Patient {
	return Patient{
		Address: Address{Country: DefaultCountry},
	}
}

func NewMedical() Medical {
	return Medical{
		ChiefComplaints: []string{},
		PastMedicalHistory: PastMedicalHistory{
			Conditions: []HistoryEntry{{}},
		},
		PastSurgicalHistory: PastSurgicalHistory{
			Surgeries: []SurgeryEntry{{}},
		},
		Hypersensitivity: Hypersensitivity{Drugs: []string{}},
		Vitals: Vitals{
			TemperatureType: "oral",
			BloodPressure:   BloodPressure{Position: "sitting"},
		},
		PhysicalExam: NewPhysicalExam(),
	}
}

// NewPhysicalExam returns every fixed body-system key marked normal.
func NewPhysicalExam() map[string]ExamFinding {
	exam := make(map[string]ExamFinding, len(ExamKeys))
	for _, k := range ExamKeys {
		exam[k] = ExamFinding{Normal: true}
	}
	return exam
}

func NewTreatment() Treatment {
	return Treatment{
		Investigations: []string{},
		Diagnosis:      []string{},
		Medications:    []Medication{{SNo: 1}},
	}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d

	out.Hospital.Accreditations = append([]string(nil), d.Hospital.Accreditations...)
	out.Hospital.Doctors = append([]Doctor(nil), d.Hospital.Doctors...)

	out.Medical.ChiefComplaints = append([]string(nil), d.Medical.ChiefComplaints...)
	out.Medical.PastMedicalHistory.Conditions = append([]HistoryEntry(nil), d.Medical.PastMedicalHistory.Conditions...)
	out.Medical.PastSurgicalHistory.Surgeries = append([]SurgeryEntry(nil), d.Medical.PastSurgicalHistory.Surgeries...)
	out.Medical.Hypersensitivity.Drugs = append([]string(nil), d.Medical.Hypersensitivity.Drugs...)
	if d.Medical.PhysicalExam != nil {
		out.Medical.PhysicalExam = make(map[string]ExamFinding, len(d.Medical.PhysicalExam))
		for k, v := range d.Medical.PhysicalExam {
			out.Medical.PhysicalExam[k] = v
		}
	}

	out.Treatment.Investigations = append([]string(nil), d.Treatment.Investigations...)
	out.Treatment.Diagnosis = append([]string(nil), d.Treatment.Diagnosis...)
	out.Treatment.Medications = append([]Medication(nil), d.Treatment.Medications...)
	if d.Treatment.FollowUpDate != nil {
		v := *d.Treatment.FollowUpDate
		out.Treatment.FollowUpDate = &v
	}

	out.normalize(d)
	return out
}
