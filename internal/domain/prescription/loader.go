package prescription

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/medsave/rxwizard/internal/domain/draft"
	"github.com/medsave/rxwizard/internal/platform/medsave"
)

const noticeExistingPatient = "Failed to load existing patient data."

type LoadStatus string

const (
	LoadLoaded    LoadStatus = "loaded"
	LoadEmpty     LoadStatus = "empty"
	LoadFailed    LoadStatus = "failed"
	LoadDiscarded LoadStatus = "discarded"
)

// LoadItem is the outcome of one sub-resource of an existing patient.
type LoadItem struct {
	Resource string     `json:"resource"`
	Status   LoadStatus `json:"status"`
	Count    int        `json:"count"`
	Error    string     `json:"error,omitempty"`
}

// LoadReport lists every sub-resource LoadExistingPatient fetched. Failed
// items never undo the ones applied before them.
type LoadReport struct {
	PatientID       string     `json:"patient_id"`
	PrescriptionID  string     `json:"prescription_id,omitempty"`
	Items           []LoadItem `json:"items"`
	UnknownExamKeys []string   `json:"unknown_exam_keys,omitempty"`
	Discarded       bool       `json:"discarded"`
}

// Complete reports whether every fetched item loaded or was empty.
func (r *LoadReport) Complete() bool {
	if r.Discarded {
		return false
	}
	for _, it := range r.Items {
		if it.Status == LoadFailed || it.Status == LoadDiscarded {
			return false
		}
	}
	return true
}

func (r *LoadReport) add(resource string, status LoadStatus, count int, err error) {
	it := LoadItem{Resource: resource, Status: status, Count: count}
	if err != nil {
		it.Error = err.Error()
	}
	r.Items = append(r.Items, it)
}

type ExistingPatient struct {
	*Draft
	Report *LoadReport `json:"report"`
}

// LoadExistingPatient replaces the patient section with a stored patient and
// then pulls the clinical history of their latest prescription. Each part is
// committed on its own; a reset or discard of the draft while the load runs
// drops whatever has not been applied yet.
func (s *Service) LoadExistingPatient(ctx context.Context, id, patientID string) (*ExistingPatient, error) {
	_, gen, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	log := s.logger.With().Str("draft_id", id).Str("patient_id", patientID).Logger()

	rec, err := s.records.GetPatient(ctx, patientID)
	if err != nil {
		log.Error().Err(err).Msg("load existing patient")
		return nil, userError(noticeExistingPatient, err)
	}
	mapped := patientFromRecord(rec)
	d, err := s.updateAt(ctx, id, gen, func(st *draft.Store) error {
		cur := draft.PatientDoc.Get(st.Document())
		mapped.DateTime = cur.DateTime
		mapped.BillingInfo = cur.BillingInfo
		mapped.ExistingPatientID = patientID
		return draft.Set(st, draft.PatientDoc, mapped)
	})
	if err != nil {
		return nil, err
	}
	gen = d.Generation

	report := &LoadReport{PatientID: patientID}
	out := &ExistingPatient{Draft: d, Report: report}

	rxs, err := s.records.ListPrescriptions(ctx, patientID)
	if err != nil {
		log.Warn().Err(err).Msg("list prescriptions")
		report.add("prescriptions", LoadFailed, 0, err)
		return out, nil
	}
	if len(rxs.Items) == 0 {
		report.add("prescriptions", LoadEmpty, 0, nil)
		return out, nil
	}
	rxID := rxs.Items[0].ID.String()
	report.PrescriptionID = rxID
	report.add("prescriptions", LoadLoaded, len(rxs.Items), nil)

	steps := []struct {
		resource string
		run      func() (int, func(*draft.Store) error, error)
	}{
		{"medical_histories", func() (int, func(*draft.Store) error, error) {
			page, err := s.records.ListMedicalHistories(ctx, rxID)
			if err != nil {
				return 0, nil, err
			}
			h := draft.PastMedicalHistory{HasHistory: true, Conditions: conditionsFrom(page.Items)}
			return len(page.Items), func(st *draft.Store) error { return draft.Set(st, draft.MedicalHistory, h) }, nil
		}},
		{"surgical_histories", func() (int, func(*draft.Store) error, error) {
			page, err := s.records.ListSurgicalHistories(ctx, rxID)
			if err != nil {
				return 0, nil, err
			}
			h := draft.PastSurgicalHistory{HasHistory: true, Surgeries: surgeriesFrom(page.Items)}
			return len(page.Items), func(st *draft.Store) error { return draft.Set(st, draft.SurgicalHistory, h) }, nil
		}},
		{"hypersensitivities", func() (int, func(*draft.Store) error, error) {
			page, err := s.records.ListHypersensitivities(ctx, rxID)
			if err != nil {
				return 0, nil, err
			}
			h := draft.Hypersensitivity{HasHypersensitivity: true, Drugs: drugsFrom(page.Items)}
			return len(page.Items), func(st *draft.Store) error { return draft.Set(st, draft.HypersensitivityRef, h) }, nil
		}},
		{"vitals", func() (int, func(*draft.Store) error, error) {
			page, err := s.records.ListVitals(ctx, rxID)
			if err != nil || len(page.Items) == 0 {
				return 0, nil, err
			}
			v := vitalsFrom(page.Items[0])
			return len(page.Items), func(st *draft.Store) error { return draft.Set(st, draft.VitalsRef, v) }, nil
		}},
		{"physical_exams", func() (int, func(*draft.Store) error, error) {
			page, err := s.records.ListPhysicalExams(ctx, rxID)
			if err != nil || len(page.Items) == 0 {
				return 0, nil, err
			}
			for _, k := range unknownExamKeys(page.Items) {
				log.Warn().Str("exam_type", k).Msg("physical exam outside the fixed body systems")
				report.UnknownExamKeys = append(report.UnknownExamKeys, k)
			}
			return len(page.Items), func(st *draft.Store) error {
				exam := draft.PhysicalExam.Get(st.Document())
				return draft.Set(st, draft.PhysicalExam, mergeExams(exam, page.Items))
			}, nil
		}},
	}

	for i, step := range steps {
		n, apply, err := step.run()
		if err != nil {
			log.Warn().Err(err).Str("entity", step.resource).Msg("load patient history")
			report.add(step.resource, LoadFailed, 0, err)
			continue
		}
		if apply == nil {
			report.add(step.resource, LoadEmpty, 0, nil)
			continue
		}
		d, err = s.updateAt(ctx, id, gen, apply)
		if errors.Is(err, ErrStale) || errors.Is(err, ErrDraftNotFound) {
			log.Info().Str("entity", step.resource).Msg("draft reset during load, dropping the rest")
			report.Discarded = true
			for _, rest := range steps[i:] {
				report.add(rest.resource, LoadDiscarded, 0, nil)
			}
			return out, nil
		}
		if err != nil {
			report.add(step.resource, LoadFailed, n, err)
			continue
		}
		out.Draft = d
		status := LoadLoaded
		if n == 0 {
			status = LoadEmpty
		}
		report.add(step.resource, status, n, nil)
	}
	return out, nil
}

func conditionsFrom(items []medsave.MedicalHistory) []draft.HistoryEntry {
	out := make([]draft.HistoryEntry, 0, len(items))
	for _, it := range items {
		e := draft.HistoryEntry{
			Name:       it.ConditionName,
			Date:       it.ConditionDate.String(),
			Month:      it.ConditionMonth.String(),
			Year:       it.ConditionYear.String(),
			Medication: it.Medication,
		}
		if e.Name == "" {
			e.Name = it.Condition
		}
		if e.Date == "" && e.Month == "" && e.Year == "" && it.OnsetDate != "" {
			e.Year, e.Month, e.Date = splitDate(it.OnsetDate)
		}
		out = append(out, e)
	}
	return out
}

// splitDate splits YYYY-MM-DD; missing parts come back empty.
func splitDate(s string) (year, month, day string) {
	parts := strings.SplitN(s, "-", 3)
	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	return at(0), at(1), at(2)
}

func surgeriesFrom(items []medsave.SurgicalHistory) []draft.SurgeryEntry {
	out := make([]draft.SurgeryEntry, 0, len(items))
	for _, it := range items {
		out = append(out, draft.SurgeryEntry{
			Type:       it.SurgeryType,
			Date:       it.SurgeryDate.String(),
			Month:      it.SurgeryMonth.String(),
			Year:       it.SurgeryYear.String(),
			Medication: it.Medication,
		})
	}
	return out
}

func drugsFrom(items []medsave.Hypersensitivity) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		name := it.DrugName
		if name == "" {
			name = it.Name
		}
		out = append(out, name)
	}
	return out
}

func vitalsFrom(v medsave.VitalSigns) draft.Vitals {
	out := draft.Vitals{
		Temperature:     v.Temperature.String(),
		TemperatureType: v.TemperatureType,
		Pulse:           v.Pulse.String(),
		PulseOximetry:   v.PulseOximetry.String(),
		RespiratoryRate: v.RespiratoryRate.String(),
		BloodPressure: draft.BloodPressure{
			Systolic:  v.BloodPressureSystolic.String(),
			Diastolic: v.BloodPressureDiastolic.String(),
			Position:  v.BloodPressurePosition,
		},
	}
	if out.TemperatureType == "" {
		out.TemperatureType = "oral"
	}
	if out.BloodPressure.Position == "" {
		out.BloodPressure.Position = "sitting"
	}
	return out
}

// mergeExams overlays stored findings onto exam by exam_type. Keys outside
// the fixed set are kept.
func mergeExams(exam map[string]draft.ExamFinding, items []medsave.PhysicalExam) map[string]draft.ExamFinding {
	out := make(map[string]draft.ExamFinding, len(exam)+len(items))
	for k, v := range exam {
		out[k] = v
	}
	for _, it := range items {
		if it.ExamType == "" {
			continue
		}
		out[it.ExamType] = draft.ExamFinding{Normal: bool(it.IsNormal), Description: it.Description}
	}
	return out
}

func unknownExamKeys(items []medsave.PhysicalExam) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		if it.ExamType == "" || draft.IsExamKey(it.ExamType) || seen[it.ExamType] {
			continue
		}
		seen[it.ExamType] = true
		out = append(out, it.ExamType)
	}
	sort.Strings(out)
	return out
}
