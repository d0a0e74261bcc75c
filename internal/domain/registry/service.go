// Package registry backs the management pages: patient and doctor listings,
// the doctor form, dashboard counts and the patient workbook export.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medsave/rxwizard/internal/domain/derive"
	"github.com/medsave/rxwizard/internal/platform/medsave"
	"github.com/medsave/rxwizard/pkg/pagination"
)

const (
	PatientsPerPage = 10
	DoctorsPerPage  = 10

	// DashboardPatientLimit caps the patient count shown on the dashboard.
	DashboardPatientLimit = 100

	// doctorFetchLimit is large enough to pull every doctor in one list call;
	// the doctor filter runs locally.
	doctorFetchLimit = 1000
)

var (
	ErrMissingHospital = errors.New("hospital save returned no id")
	ErrInvalidInput    = errors.New("invalid input")
)

type Service struct {
	records   Records
	allocator RegistrationAllocator
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(records Records, allocator RegistrationAllocator, logger zerolog.Logger) *Service {
	return &Service{
		records:   records,
		allocator: allocator,
		logger:    logger.With().Str("component", "registry").Logger(),
		now:       time.Now,
	}
}

// -- Patients --

type PatientFilter struct {
	RegistrationNo string
	Phone          string
}

func (f PatientFilter) filters() map[string]string {
	return map[string]string{
		"registration_no": strings.TrimSpace(f.RegistrationNo),
		"phone":           strings.TrimSpace(f.Phone),
	}
}

type PatientPage struct {
	Patients []medsave.Patient
	Total    int
	Params   pagination.Params
}

// ListPatients returns one page of patients. When the API leaves total out
// the item count stands in for it.
func (s *Service) ListPatients(ctx context.Context, page int, f PatientFilter) (*PatientPage, error) {
	p := pagination.New(page, PatientsPerPage)
	res, err := s.records.ListPatients(ctx, medsave.ListOptions{
		Limit:   p.Limit,
		Offset:  p.Offset,
		Filters: f.filters(),
	})
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	total := int(res.Total)
	if total == 0 {
		total = len(res.Items)
	}
	items := res.Items
	if items == nil {
		items = []medsave.Patient{}
	}
	return &PatientPage{Patients: items, Total: total, Params: p}, nil
}

func (s *Service) DeletePatient(ctx context.Context, id string) error {
	return s.delete(ctx, medsave.Patients, id)
}

func (s *Service) delete(ctx context.Context, entity medsave.Entity, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty %s id", ErrInvalidInput, entity)
	}
	if err := s.records.Delete(ctx, entity, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", entity, id, err)
	}
	s.logger.Info().Str("entity", string(entity)).Str("id", id).Msg("record deleted")
	return nil
}

// -- Doctors --

type HospitalRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type DoctorRow struct {
	medsave.Doctor
	Hospital *HospitalRef `json:"hospital,omitempty"`
}

type DoctorPage struct {
	Doctors []DoctorRow
	Total   int
	Params  pagination.Params
}

// MatchDoctor reports whether term is a case-insensitive substring of the
// doctor's name or a substring of its id. A blank term matches everything.
func MatchDoctor(d medsave.Doctor, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Name), strings.ToLower(term)) ||
		strings.Contains(d.ID.String(), term)
}

// ListDoctors fetches every doctor, filters locally and returns one page with
// the hospitals of that page attached. A hospital that fails to load is left
// off its rows.
func (s *Service) ListDoctors(ctx context.Context, term string, page int) (*DoctorPage, error) {
	res, err := s.records.ListDoctors(ctx, medsave.ListOptions{Limit: doctorFetchLimit})
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	matched := make([]medsave.Doctor, 0, len(res.Items))
	for _, d := range res.Items {
		if MatchDoctor(d, term) {
			matched = append(matched, d)
		}
	}

	p := pagination.New(page, DoctorsPerPage)
	start, end := p.Window(len(matched))
	rows := make([]DoctorRow, 0, end-start)
	hospitals := map[string]*HospitalRef{}
	for _, d := range matched[start:end] {
		row := DoctorRow{Doctor: d}
		if hid := d.HospitalID.String(); hid != "" {
			ref, seen := hospitals[hid]
			if !seen {
				ref = s.hospitalRef(ctx, hid)
				hospitals[hid] = ref
			}
			row.Hospital = ref
		}
		rows = append(rows, row)
	}
	return &DoctorPage{Doctors: rows, Total: len(matched), Params: p}, nil
}

func (s *Service) hospitalRef(ctx context.Context, id string) *HospitalRef {
	h, err := s.records.GetHospital(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("hospital_id", id).Msg("hospital lookup failed")
		return nil
	}
	return &HospitalRef{ID: id, Name: h.Name, Address: h.Address}
}

type DoctorForm struct {
	Hospital medsave.Hospital `json:"hospital"`
	Doctor   medsave.Doctor   `json:"doctor"`
}

type SavedDoctor struct {
	HospitalID string `json:"hospital_id"`
	DoctorID   string `json:"doctor_id"`
}

// SaveDoctor saves the hospital first and the doctor under the hospital id it
// gets back. No doctor is written when the hospital save yields no id.
func (s *Service) SaveDoctor(ctx context.Context, form DoctorForm) (*SavedDoctor, error) {
	hid, err := s.records.SaveHospital(ctx, form.Hospital.ID.String(), form.Hospital)
	if err != nil {
		return nil, fmt.Errorf("save hospital: %w", err)
	}
	if hid == "" {
		hid = form.Hospital.ID.String()
	}
	if hid == "" {
		return nil, ErrMissingHospital
	}

	d := form.Doctor
	d.HospitalID = medsave.FlexString(hid)
	did, err := s.records.SaveDoctor(ctx, d.ID.String(), d)
	if err != nil {
		return nil, fmt.Errorf("save doctor: %w", err)
	}
	if did == "" {
		did = d.ID.String()
	}
	s.logger.Info().Str("hospital_id", hid).Str("doctor_id", did).Msg("doctor saved")
	return &SavedDoctor{HospitalID: hid, DoctorID: did}, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id string) error {
	return s.delete(ctx, medsave.Doctors, id)
}

// -- Dashboard --

type Counts struct {
	Hospitals int `json:"hospitals"`
	Doctors   int `json:"doctors"`
	Patients  int `json:"patients"`
}

// Dashboard counts the listed items of each entity. Patients are capped at
// DashboardPatientLimit.
func (s *Service) Dashboard(ctx context.Context) (Counts, error) {
	hospitals, err := s.records.ListHospitals(ctx, medsave.ListOptions{})
	if err != nil {
		return Counts{}, fmt.Errorf("list hospitals: %w", err)
	}
	doctors, err := s.records.ListDoctors(ctx, medsave.ListOptions{})
	if err != nil {
		return Counts{}, fmt.Errorf("list doctors: %w", err)
	}
	patients, err := s.records.ListPatients(ctx, medsave.ListOptions{Limit: DashboardPatientLimit})
	if err != nil {
		return Counts{}, fmt.Errorf("list patients: %w", err)
	}
	return Counts{
		Hospitals: len(hospitals.Items),
		Doctors:   len(doctors.Items),
		Patients:  len(patients.Items),
	}, nil
}

// -- Export and registration numbers --

// ExportPatients renders one filtered page of patients as an xlsx workbook.
func (s *Service) ExportPatients(ctx context.Context, page int, f PatientFilter) ([]byte, error) {
	res, err := s.ListPatients(ctx, page, f)
	if err != nil {
		return nil, err
	}
	data, err := PatientWorkbook(res.Patients)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("page", res.Params.Page).Int("rows", len(res.Patients)).Msg("patients exported")
	return data, nil
}

func (s *Service) NextRegistrationNumber(ctx context.Context) derive.Allocation {
	a := s.allocator.Next(ctx, s.now())
	if !a.Authoritative {
		s.logger.Warn().Str("reason", a.Reason).Str("registration_no", a.Number).
			Msg("registration number not authoritative")
	}
	return a
}
