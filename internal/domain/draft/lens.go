package draft

// Field is a typed reference to a single value of a Document. It pairs the
// wire Path with an accessor so Go callers get compile time checking.
type Field[V any] struct {
	Path Path
	ref  func(*Document) *V
}

func (f Field[V]) Get(d Document) V {
	return *f.ref(&d)
}

// List is a typed reference to an array of a Document.
type List[E any] struct {
	Path Path
	ref  func(*Document) *[]E
}

func (l List[E]) Get(d Document) []E {
	return append([]E(nil), *l.ref(&d)...)
}

// Set stores v at f.
func Set[V any](s *Store, f Field[V], v V) error {
	return s.Update(func(d *Document) error {
		*f.ref(d) = v
		return nil
	})
}

// Append adds item to the end of l.
func Append[E any](s *Store, l List[E], item E) error {
	return s.Update(func(d *Document) error {
		*l.ref(d) = append(*l.ref(d), item)
		return nil
	})
}

// Edit applies fn to element i of l, padding with zero values as needed. At
// most MaxPadding elements are added.
func Edit[E any](s *Store, l List[E], i int, fn func(*E)) error {
	if i < 0 {
		return ErrInvalidValue
	}
	return s.Update(func(d *Document) error {
		list := l.ref(d)
		if i > len(*list)+MaxPadding {
			return ErrInvalidValue
		}
		for len(*list) <= i {
			var zero E
			*list = append(*list, zero)
		}
		fn(&(*list)[i])
		return nil
	})
}

// Remove drops element i of l. Out of range indexes are ignored.
func Remove[E any](s *Store, l List[E], i int) error {
	return s.Update(func(d *Document) error {
		list := l.ref(d)
		if i < 0 || i >= len(*list) || len(*list) <= floorOf(l.Path) {
			return nil
		}
		*list = append((*list)[:i:i], (*list)[i+1:]...)
		return nil
	})
}

func field[V any](s Section, name string, ref func(*Document) *V) Field[V] {
	return Field[V]{Path: Path{Section: s, Field: name}, ref: ref}
}

func list[E any](s Section, name string, ref func(*Document) *[]E) List[E] {
	return List[E]{Path: Path{Section: s, Field: name}, ref: ref}
}

var (
	HospitalID  = field(SectionHospital, "id", func(d *Document) *string { return &d.Hospital.ID })
	HospitalDoc = field(SectionHospital, "", func(d *Document) *Hospital { return &d.Hospital })
	Doctors     = list(SectionHospital, "doctors", func(d *Document) *[]Doctor { return &d.Hospital.Doctors })

	PatientID      = field(SectionPatient, "id", func(d *Document) *string { return &d.Patient.ID })
	PatientDoc     = field(SectionPatient, "", func(d *Document) *Patient { return &d.Patient })
	RegistrationNo = field(SectionPatient, "registration_no", func(d *Document) *string { return &d.Patient.RegistrationNo })
	DateTime       = field(SectionPatient, "date_time", func(d *Document) *string { return &d.Patient.DateTime })
	PatientAddress = field(SectionPatient, "address", func(d *Document) *Address { return &d.Patient.Address })
	BillingRef     = field(SectionPatient, "billing_info", func(d *Document) *BillingInfo { return &d.Patient.BillingInfo })

	MedicalHistory      = field(SectionMedical, "past_medical_history", func(d *Document) *PastMedicalHistory { return &d.Medical.PastMedicalHistory })
	SurgicalHistory     = field(SectionMedical, "past_surgical_history", func(d *Document) *PastSurgicalHistory { return &d.Medical.PastSurgicalHistory })
	HypersensitivityRef = field(SectionMedical, "hypersensitivity", func(d *Document) *Hypersensitivity { return &d.Medical.Hypersensitivity })
	VitalsRef           = field(SectionMedical, "vitals", func(d *Document) *Vitals { return &d.Medical.Vitals })
	PhysicalExam        = field(SectionMedical, "physical_exam", func(d *Document) *map[string]ExamFinding { return &d.Medical.PhysicalExam })
	Complaints          = list(SectionMedical, "chief_complaints", func(d *Document) *[]string { return &d.Medical.ChiefComplaints })

	Investigations = list(SectionTreatment, "investigations", func(d *Document) *[]string { return &d.Treatment.Investigations })
	Diagnoses      = list(SectionTreatment, "diagnosis", func(d *Document) *[]string { return &d.Treatment.Diagnosis })
	Medications    = list(SectionTreatment, "medications", func(d *Document) *[]Medication { return &d.Treatment.Medications })
)
