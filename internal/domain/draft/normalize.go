package draft

// normalize restores the document invariants after a mutation. prev is the
// document before the mutation; physical exam keys missing from d keep the
// value they had there.
func (d *Document) normalize(prev Document) {
	h := &d.Hospital
	if h.Accreditations == nil {
		h.Accreditations = []string{}
	}
	if len(h.Doctors) == 0 {
		h.Doctors = []Doctor{{}}
	}

	if d.Patient.Address.Country == "" {
		d.Patient.Address.Country = DefaultCountry
	}

	m := &d.Medical
	if m.ChiefComplaints == nil {
		m.ChiefComplaints = []string{}
	}
	if m.PastMedicalHistory.Conditions == nil {
		m.PastMedicalHistory.Conditions = []HistoryEntry{}
	}
	if m.PastSurgicalHistory.Surgeries == nil {
		m.PastSurgicalHistory.Surgeries = []SurgeryEntry{}
	}
	if m.Hypersensitivity.Drugs == nil {
		m.Hypersensitivity.Drugs = []string{}
	}
	if m.PhysicalExam == nil {
		m.PhysicalExam = make(map[string]ExamFinding, len(ExamKeys))
	}
	for _, k := range ExamKeys {
		if _, ok := m.PhysicalExam[k]; ok {
			continue
		}
		if v, ok := prev.Medical.PhysicalExam[k]; ok {
			m.PhysicalExam[k] = v
		} else {
			m.PhysicalExam[k] = ExamFinding{Normal: true}
		}
	}

	t := &d.Treatment
	if t.Investigations == nil {
		t.Investigations = []string{}
	}
	if t.Diagnosis == nil {
		t.Diagnosis = []string{}
	}
	if len(t.Medications) == 0 {
		t.Medications = []Medication{{SNo: 1}}
	}
}

// floors lists the arrays that never shrink below one element.
var floors = map[Section]map[string]int{
	SectionHospital:  {"doctors": 1},
	SectionTreatment: {"medications": 1},
}

func floorOf(p Path) int {
	return floors[p.Section][p.Field]
}
