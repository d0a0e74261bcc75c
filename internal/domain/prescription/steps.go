package prescription

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/medsave/rxwizard/internal/domain/derive"
	"github.com/medsave/rxwizard/internal/domain/draft"
	"github.com/medsave/rxwizard/internal/platform/debounce"
	"github.com/medsave/rxwizard/internal/platform/medsave"
	"github.com/medsave/rxwizard/internal/platform/postal"
)

const (
	noticeDoctorLoad  = "Failed to load doctor details."
	noticeSaveStep    = "Failed to save data. Please try again."
	noticePatientLoad = "Failed to load patient details."
	noticePatientSave = "Failed to save patient data. Please try again."
	noticeSearch      = "Failed to load patients."

	pinInvalid   = "Invalid PIN code"
	pinFetchFail = "Failed to fetch PIN code details"

	searchLimit = 10
)

// SelectDoctor fills the hospital section from a stored doctor and the
// hospital it belongs to.
func (s *Service) SelectDoctor(ctx context.Context, id, doctorID string) (*Draft, error) {
	_, gen, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.records.GetDoctor(ctx, doctorID)
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Str("doctor_id", doctorID).Msg("get doctor")
		return nil, userError(noticeDoctorLoad, err)
	}
	if doc.HospitalID == "" {
		return nil, ErrMissingHospital
	}
	hosp, err := s.records.GetHospital(ctx, doc.HospitalID.String())
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Str("hospital_id", doc.HospitalID.String()).Msg("get hospital")
		return nil, userError(noticeDoctorLoad, err)
	}

	h := hospitalFromRecord(hosp)
	h.Doctors = []draft.Doctor{doctorFromRecord(doc)}
	return s.updateAt(ctx, id, gen, func(st *draft.Store) error {
		return draft.Set(st, draft.HospitalDoc, h)
	})
}

// SaveHospitalStep saves the hospital and then its first doctor, storing the
// ids the API assigns.
func (s *Service) SaveHospitalStep(ctx context.Context, id string) (*Draft, error) {
	doc, gen, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	h := doc.Hospital

	savedID, err := s.records.SaveHospital(ctx, h.ID, hospitalRecord(h))
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Msg("save hospital")
		return nil, userError(noticeSaveStep, err)
	}
	hospitalID := savedID
	if hospitalID == "" {
		hospitalID = h.ID
	}
	if hospitalID == "" {
		return nil, ErrMissingHospital
	}
	if _, err := s.updateAt(ctx, id, gen, func(st *draft.Store) error {
		return draft.Set(st, draft.HospitalID, hospitalID)
	}); err != nil {
		return nil, err
	}

	var d draft.Doctor
	if len(h.Doctors) > 0 {
		d = h.Doctors[0]
	}
	doctorID, err := s.records.SaveDoctor(ctx, d.ID, doctorRecord(d, hospitalID))
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Str("hospital_id", hospitalID).Msg("save doctor")
		return nil, userError(noticeSaveStep, err)
	}
	return s.updateAt(ctx, id, gen, func(st *draft.Store) error {
		if doctorID == "" {
			return nil
		}
		return st.SetArrayElementField(draft.SectionHospital, "doctors", 0, "id", doctorID)
	})
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// SearchFilter picks the patient list filter a search term is matched on.
func SearchFilter(term string) map[string]string {
	switch {
	case digitsOnly.MatchString(term):
		return map[string]string{"phone": term}
	case strings.HasPrefix(strings.ToUpper(term), derive.RegistrationPrefix):
		return map[string]string{"registration_no": term}
	default:
		return map[string]string{"first_name": term}
	}
}

// SearchPatients looks patients up after the quiet period. A newer search
// on the same draft makes this one fail with debounce.ErrSuperseded, also
// when the newer one starts while this one is waiting on the API.
func (s *Service) SearchPatients(ctx context.Context, id, term string) ([]PatientSummary, error) {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(term) == "" {
		s.searches.Forget(id)
		return []PatientSummary{}, nil
	}
	latest, err := s.searches.Wait(ctx, id)
	if err != nil {
		return nil, err
	}

	page, err := s.records.ListPatients(ctx, medsave.ListOptions{
		Limit:   searchLimit,
		Filters: SearchFilter(term),
	})
	if !latest() {
		return nil, debounce.ErrSuperseded
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("draft_id", id).Msg("search patients")
		return nil, userError(noticeSearch, err)
	}

	out := make([]PatientSummary, 0, len(page.Items))
	for _, p := range page.Items {
		out = append(out, summarize(p))
	}
	return out, nil
}

// AgeInput is the raw value typed in one of the age modes.
type AgeInput struct {
	Mode  derive.AgeMode `json:"mode"`
	Input string         `json:"input"`
}

type PatientSelection struct {
	*Draft
	AgeInput AgeInput `json:"age_input"`
}

// SelectPatient copies a stored patient into the draft. date_time is kept
// and billing info starts over for the new encounter.
func (s *Service) SelectPatient(ctx context.Context, id, patientID string) (*PatientSelection, error) {
	_, gen, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.GetPatient(ctx, patientID)
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Str("patient_id", patientID).Msg("get patient")
		return nil, userError(noticePatientLoad, err)
	}

	p := patientFromRecord(rec)
	d, err := s.updateAt(ctx, id, gen, func(st *draft.Store) error {
		cur := draft.PatientDoc.Get(st.Document())
		p.DateTime = cur.DateTime
		p.ExistingPatientID = cur.ExistingPatientID
		p.BillingInfo = draft.BillingInfo{}
		return draft.Set(st, draft.PatientDoc, p)
	})
	if err != nil {
		return nil, err
	}
	mode, input := derive.InferAgeMode(p.DOB, p.Age, p.AgeDisplay, s.clock.Now())
	return &PatientSelection{Draft: d, AgeInput: AgeInput{Mode: mode, Input: input}}, nil
}

type AgeOutcome struct {
	*Draft
	Result derive.Result[derive.Age] `json:"result"`
}

// SetAge resolves the age input and stores dob, age and age_display. A blank
// input clears them. An invalid input leaves the draft as it is and is
// reported in Result.
func (s *Service) SetAge(ctx context.Context, id string, in AgeInput) (*AgeOutcome, error) {
	res, err := derive.ResolveAge(in.Mode, in.Input, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !res.Valid {
		d, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return &AgeOutcome{Draft: d, Result: res}, nil
	}
	d, err := s.update(ctx, id, func(st *draft.Store) error {
		return draft.Set(st, draft.PatientDoc, withAge(draft.PatientDoc.Get(st.Document()), res.Value))
	})
	if err != nil {
		return nil, err
	}
	return &AgeOutcome{Draft: d, Result: res}, nil
}

func withAge(p draft.Patient, a derive.Age) draft.Patient {
	p.DOB = a.DOB
	p.Age = a.Age
	p.AgeDisplay = a.Display
	return p
}

type Anthropometrics struct {
	*Draft
	BMI      string `json:"bmi"`
	Category string `json:"category,omitempty"`
}

// SetAnthropometrics stores weight and height and recomputes bmi.
func (s *Service) SetAnthropometrics(ctx context.Context, id, weight, height string) (*Anthropometrics, error) {
	bmi := derive.BMI(weight, height)
	d, err := s.update(ctx, id, func(st *draft.Store) error {
		p := draft.PatientDoc.Get(st.Document())
		p.Weight = weight
		p.Height = height
		p.BMI = bmi
		return draft.Set(st, draft.PatientDoc, p)
	})
	if err != nil {
		return nil, err
	}
	out := &Anthropometrics{Draft: d, BMI: bmi}
	if v, ok := bmiValue(weight, height); ok {
		out.Category = derive.BMICategory(v)
	}
	return out, nil
}

func bmiValue(weight, height string) (float64, bool) {
	w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
	if err != nil {
		return 0, false
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(height), 64)
	if err != nil {
		return 0, false
	}
	return derive.ComputeBMI(w, h)
}

type PostalOutcome struct {
	*Draft
	Error string `json:"error,omitempty"`
}

// LookupPostalCode stores the sanitized pin and, once it has six digits,
// fills district, state and country from the postal service. Lookup
// failures are field errors and never fail the request.
func (s *Service) LookupPostalCode(ctx context.Context, id, pin string) (*PostalOutcome, error) {
	pin = derive.SanitizeDigits(pin, derive.PinLength)
	d, err := s.update(ctx, id, func(st *draft.Store) error {
		addr := draft.PatientAddress.Get(st.Document())
		addr.Pin = pin
		return draft.Set(st, draft.PatientAddress, addr)
	})
	if err != nil {
		return nil, err
	}
	if len(pin) != derive.PinLength {
		return &PostalOutcome{Draft: d}, nil
	}

	place, err := s.postal.Lookup(ctx, pin)
	switch {
	case errors.Is(err, postal.ErrInvalidPin):
		return &PostalOutcome{Draft: d, Error: pinInvalid}, nil
	case err != nil:
		s.logger.Warn().Err(err).Str("draft_id", id).Str("pin", pin).Msg("postal lookup")
		return &PostalOutcome{Draft: d, Error: pinFetchFail}, nil
	}

	d, err = s.updateAt(ctx, id, d.Generation, func(st *draft.Store) error {
		addr := draft.PatientAddress.Get(st.Document())
		if addr.Pin != pin {
			return nil
		}
		addr.District = place.District
		addr.State = place.State
		addr.Country = place.Country
		return draft.Set(st, draft.PatientAddress, addr)
	})
	if err != nil {
		return nil, err
	}
	return &PostalOutcome{Draft: d}, nil
}

// ValidationReport maps field names to messages. Valid is true when Errors
// is empty.
type ValidationReport struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// Validate checks the contact fields of p and, when given, the age input.
func Validate(p draft.Patient, age *AgeInput, now time.Time) ValidationReport {
	errs := map[string]string{}
	if r := derive.ValidatePhone(p.Phone); !r.Valid {
		errs["phone"] = r.Error
	}
	if r := derive.ValidateEmail(p.Email); !r.Valid {
		errs["email"] = r.Error
	}
	if r := derive.ValidateAadhaar(p.AadhaarNumber); !r.Valid {
		errs["aadhaar_number"] = r.Error
	}
	if age != nil && strings.TrimSpace(age.Input) != "" {
		res, err := derive.ResolveAge(age.Mode, age.Input, now)
		switch {
		case err != nil:
			errs["dob"] = err.Error()
		case !res.Valid:
			errs["dob"] = res.Error
		}
	}
	return ValidationReport{Valid: len(errs) == 0, Errors: errs}
}

func (s *Service) ValidatePatient(ctx context.Context, id string, age *AgeInput) (ValidationReport, error) {
	store, err := s.sessions.Get(ctx, id)
	if err != nil {
		return ValidationReport{}, err
	}
	return Validate(store.Document().Patient, age, s.clock.Now()), nil
}

type PatientStep struct {
	*Draft
	Validation ValidationReport `json:"validation"`
}

// SavePatientStep validates and saves the patient. Under PolicyAdvisory the
// save goes ahead regardless of the report; under PolicyBlocking a failing
// report returns ErrValidation and nothing is sent.
func (s *Service) SavePatientStep(ctx context.Context, id string, age *AgeInput) (*PatientStep, error) {
	doc, gen, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	report := Validate(doc.Patient, age, s.clock.Now())
	if !report.Valid && s.policy == PolicyBlocking {
		return &PatientStep{Draft: &Draft{ID: id, Generation: gen, Document: doc}, Validation: report}, ErrValidation
	}

	p := doc.Patient
	savedID, err := s.records.SavePatient(ctx, p.ID, patientRecord(p))
	if err != nil {
		s.logger.Error().Err(err).Str("draft_id", id).Str("patient_id", p.ID).Msg("save patient")
		return nil, userError(noticePatientSave, err)
	}
	d, err := s.updateAt(ctx, id, gen, func(st *draft.Store) error {
		if savedID == "" {
			return nil
		}
		return draft.Set(st, draft.PatientID, savedID)
	})
	if err != nil {
		return nil, err
	}
	return &PatientStep{Draft: d, Validation: report}, nil
}
