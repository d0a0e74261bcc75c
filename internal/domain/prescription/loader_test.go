package prescription

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/medsave/rxwizard/internal/domain/draft"
	"github.com/medsave/rxwizard/internal/platform/medsave"
)

func seedHistory(r *fakeRecords) {
	r.patients["5"] = medsave.Patient{ID: "5", RegistrationNo: "REG23110400003", FirstName: "Asha", LastName: "Nair", AddressPin: "560001"}
	r.prescriptions["5"] = []medsave.Prescription{{ID: "90", PatientID: "5"}, {ID: "80", PatientID: "5"}}
	r.medical["90"] = []medsave.MedicalHistory{
		{ConditionName: "Asthma", ConditionDate: "12", ConditionMonth: "05", ConditionYear: "2019", Medication: "Salbutamol"},
		{Condition: "Hypertension", OnsetDate: "2020-11-03"},
	}
	r.surgical["90"] = []medsave.SurgicalHistory{{SurgeryType: "Appendectomy", SurgeryYear: "2015"}}
	r.hyper["90"] = []medsave.Hypersensitivity{{DrugName: "Penicillin"}, {Name: "Sulfa"}}
	r.vitals["90"] = []medsave.VitalSigns{{Temperature: "98.6", Pulse: "72", BloodPressureSystolic: "120"}}
	r.exams["90"] = []medsave.PhysicalExam{
		{ExamType: "eyes", IsNormal: false, Description: "Redness"},
		{ExamType: "pancreas", IsNormal: true},
	}
}

func statuses(r *LoadReport) map[string]LoadStatus {
	out := map[string]LoadStatus{}
	for _, it := range r.Items {
		out[it.Resource] = it.Status
	}
	return out
}

func TestLoadExistingPatient(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(env.records)
	id := env.start(t)

	res, err := env.svc.LoadExistingPatient(bg, id, "5")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Report.Complete() || res.Report.PrescriptionID != "90" {
		t.Fatalf("report = %+v", res.Report)
	}
	for _, r := range []string{"prescriptions", "medical_histories", "surgical_histories", "hypersensitivities", "vitals", "physical_exams"} {
		if got := statuses(res.Report)[r]; got != LoadLoaded {
			t.Errorf("%s: status %q", r, got)
		}
	}
	if !reflect.DeepEqual(res.Report.UnknownExamKeys, []string{"pancreas"}) {
		t.Errorf("unknown exam keys = %v", res.Report.UnknownExamKeys)
	}

	doc := env.doc(t, id).Document
	if doc.Patient.FirstName != "Asha" || doc.Patient.ExistingPatientID != "5" {
		t.Errorf("patient = %+v", doc.Patient)
	}
	if doc.Patient.DateTime != "2024-01-15T10:30" || doc.Patient.RegistrationNo != "REG23110400003" {
		t.Errorf("date_time %q registration_no %q", doc.Patient.DateTime, doc.Patient.RegistrationNo)
	}

	mh := doc.Medical.PastMedicalHistory
	want := []draft.HistoryEntry{
		{Name: "Asthma", Date: "12", Month: "05", Year: "2019", Medication: "Salbutamol"},
		{Name: "Hypertension", Date: "03", Month: "11", Year: "2020"},
	}
	if !mh.HasHistory || !reflect.DeepEqual(mh.Conditions, want) {
		t.Errorf("medical history = %+v", mh)
	}
	if sh := doc.Medical.PastSurgicalHistory; !sh.HasHistory || sh.Surgeries[0].Type != "Appendectomy" {
		t.Errorf("surgical history = %+v", sh)
	}
	if h := doc.Medical.Hypersensitivity; !reflect.DeepEqual(h.Drugs, []string{"Penicillin", "Sulfa"}) {
		t.Errorf("drugs = %v", h.Drugs)
	}
	v := doc.Medical.Vitals
	if v.Temperature != "98.6" || v.TemperatureType != "oral" || v.BloodPressure.Position != "sitting" {
		t.Errorf("vitals = %+v", v)
	}
	exam := doc.Medical.PhysicalExam
	if exam["eyes"].Normal || exam["eyes"].Description != "Redness" {
		t.Errorf("eyes = %+v", exam["eyes"])
	}
	if !exam["HEENT"].Normal {
		t.Error("unlisted exam key lost its value")
	}
	if _, ok := exam["pancreas"]; !ok {
		t.Error("unknown exam key not merged")
	}
}

func TestLoadExistingPatient_PatientFailure(t *testing.T) {
	env := newTestEnv(t)
	env.records.fail["GetPatient"] = fmt.Errorf("%w: reset by peer", medsave.ErrTransport)
	id := env.start(t)
	before := env.doc(t, id).Document

	_, err := env.svc.LoadExistingPatient(bg, id, "5")
	var ue *UserError
	if !errors.As(err, &ue) || ue.Notice != "Failed to load existing patient data." {
		t.Fatalf("expected load notice, got %v", err)
	}
	if !reflect.DeepEqual(env.doc(t, id).Document, before) {
		t.Error("draft changed after the patient fetch failed")
	}
	if env.records.called("ListPrescriptions") != 0 {
		t.Error("history fetched after the patient failed")
	}
}

func TestLoadExistingPatient_NoPrescriptions(t *testing.T) {
	env := newTestEnv(t)
	env.records.patients["5"] = medsave.Patient{ID: "5", FirstName: "Asha"}
	id := env.start(t)

	res, err := env.svc.LoadExistingPatient(bg, id, "5")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Report.Items) != 1 || res.Report.Items[0].Status != LoadEmpty {
		t.Errorf("report = %+v", res.Report)
	}
	if env.records.called("ListMedicalHistories") != 0 {
		t.Error("history fetched without a prescription")
	}
	if res.Document.Patient.FirstName != "Asha" {
		t.Error("patient not applied")
	}
}

func TestLoadExistingPatient_FailedPartDoesNotUndoOthers(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(env.records)
	env.records.fail["ListSurgicalHistories"] = &medsave.APIError{Action: "list", Entity: medsave.SurgicalHistories, Message: "boom"}
	id := env.start(t)

	res, err := env.svc.LoadExistingPatient(bg, id, "5")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := statuses(res.Report)
	if got["surgical_histories"] != LoadFailed || got["medical_histories"] != LoadLoaded || got["vitals"] != LoadLoaded {
		t.Errorf("statuses = %v", got)
	}
	if res.Report.Complete() {
		t.Error("report with a failure reported complete")
	}
	doc := env.doc(t, id).Document
	if !doc.Medical.PastMedicalHistory.HasHistory || doc.Medical.PastSurgicalHistory.HasHistory {
		t.Errorf("medical %v surgical %v", doc.Medical.PastMedicalHistory.HasHistory, doc.Medical.PastSurgicalHistory.HasHistory)
	}
}

func TestLoadExistingPatient_VitalsFailureKeepsHistories(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(env.records)
	env.records.fail["ListVitals"] = fmt.Errorf("%w: timeout", medsave.ErrTransport)
	id := env.start(t)

	res, err := env.svc.LoadExistingPatient(bg, id, "5")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := statuses(res.Report); got["vitals"] != LoadFailed || got["physical_exams"] != LoadLoaded {
		t.Errorf("statuses = %v", got)
	}
	doc := env.doc(t, id).Document
	if !doc.Medical.PastMedicalHistory.HasHistory || !doc.Medical.PastSurgicalHistory.HasHistory {
		t.Error("histories rolled back by the vitals failure")
	}
	if doc.Medical.Vitals.Pulse != "" {
		t.Errorf("vitals = %+v", doc.Medical.Vitals)
	}
}

func TestLoadExistingPatient_EmptyVitalsKeepDefaults(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(env.records)
	delete(env.records.vitals, "90")
	id := env.start(t)

	res, err := env.svc.LoadExistingPatient(bg, id, "5")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if statuses(res.Report)["vitals"] != LoadEmpty {
		t.Errorf("vitals status = %q", statuses(res.Report)["vitals"])
	}
	if v := env.doc(t, id).Document.Medical.Vitals; v.TemperatureType != "oral" || v.Temperature != "" {
		t.Errorf("vitals = %+v", v)
	}
}

func TestLoadExistingPatient_ResetDuringLoadDropsLateResults(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(env.records)
	id := env.start(t)
	env.records.before["ListSurgicalHistories"] = func() {
		if _, err := env.svc.Reset(bg, id); err != nil {
			t.Errorf("reset: %v", err)
		}
	}

	res, err := env.svc.LoadExistingPatient(bg, id, "5")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Report.Discarded {
		t.Fatalf("report not marked discarded: %+v", res.Report)
	}
	got := statuses(res.Report)
	if got["medical_histories"] != LoadLoaded || got["surgical_histories"] != LoadDiscarded || got["physical_exams"] != LoadDiscarded {
		t.Errorf("statuses = %v", got)
	}
	if env.records.called("ListVitals") != 0 {
		t.Error("fetching continued after the reset")
	}

	doc := env.doc(t, id).Document
	if doc.Patient.FirstName != "" || doc.Medical.PastSurgicalHistory.HasHistory || doc.Medical.Hypersensitivity.HasHypersensitivity {
		t.Error("stale results written into the reset draft")
	}
}

func TestSplitDate(t *testing.T) {
	y, m, d := splitDate("2020-11-03")
	if y != "2020" || m != "11" || d != "03" {
		t.Errorf("got %s %s %s", y, m, d)
	}
	y, m, d = splitDate("2020")
	if y != "2020" || m != "" || d != "" {
		t.Errorf("got %q %q %q", y, m, d)
	}
}
