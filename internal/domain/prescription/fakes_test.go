package prescription

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medsave/rxwizard/internal/domain/derive"
	"github.com/medsave/rxwizard/internal/platform/medsave"
	"github.com/medsave/rxwizard/internal/platform/postal"
	"github.com/medsave/rxwizard/internal/platform/session"
)

// -- Fake MedSave records --

type fakeRecords struct {
	mu sync.Mutex

	hospitals     map[string]medsave.Hospital
	doctors       map[string]medsave.Doctor
	patients      map[string]medsave.Patient
	prescriptions map[string][]medsave.Prescription
	medical       map[string][]medsave.MedicalHistory
	surgical      map[string][]medsave.SurgicalHistory
	hyper         map[string][]medsave.Hypersensitivity
	vitals        map[string][]medsave.VitalSigns
	exams         map[string][]medsave.PhysicalExam

	// fail makes the named method return the error.
	fail map[string]error
	// before runs inside the named method before it answers.
	before map[string]func()

	nextID   int
	lastList medsave.ListOptions
	bundles  []medsave.Bundle
	receipt  medsave.BundleReceipt
	calls    map[string]int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		hospitals:     map[string]medsave.Hospital{},
		doctors:       map[string]medsave.Doctor{},
		patients:      map[string]medsave.Patient{},
		prescriptions: map[string][]medsave.Prescription{},
		medical:       map[string][]medsave.MedicalHistory{},
		surgical:      map[string][]medsave.SurgicalHistory{},
		hyper:         map[string][]medsave.Hypersensitivity{},
		vitals:        map[string][]medsave.VitalSigns{},
		exams:         map[string][]medsave.PhysicalExam{},
		fail:          map[string]error{},
		before:        map[string]func(){},
		nextID:        100,
		calls:         map[string]int{},
	}
}

func (f *fakeRecords) enter(method string) error {
	f.mu.Lock()
	f.calls[method]++
	hook := f.before[method]
	err := f.fail[method]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeRecords) called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRecords) assign(id string) string {
	if id != "" {
		return id
	}
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func notFound(entity medsave.Entity) error {
	return &medsave.APIError{Action: "get", Entity: entity, Message: "Record not found"}
}

func (f *fakeRecords) GetHospital(_ context.Context, id string) (medsave.Hospital, error) {
	if err := f.enter("GetHospital"); err != nil {
		return medsave.Hospital{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hospitals[id]
	if !ok {
		return medsave.Hospital{}, notFound(medsave.Hospitals)
	}
	return h, nil
}

func (f *fakeRecords) SaveHospital(_ context.Context, id string, h medsave.Hospital) (string, error) {
	if err := f.enter("SaveHospital"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id = f.assign(id)
	h.ID = medsave.FlexString(id)
	f.hospitals[id] = h
	return id, nil
}

func (f *fakeRecords) GetDoctor(_ context.Context, id string) (medsave.Doctor, error) {
	if err := f.enter("GetDoctor"); err != nil {
		return medsave.Doctor{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return medsave.Doctor{}, notFound(medsave.Doctors)
	}
	return d, nil
}

func (f *fakeRecords) SaveDoctor(_ context.Context, id string, d medsave.Doctor) (string, error) {
	if err := f.enter("SaveDoctor"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id = f.assign(id)
	d.ID = medsave.FlexString(id)
	f.doctors[id] = d
	return id, nil
}

func (f *fakeRecords) ListPatients(_ context.Context, opts medsave.ListOptions) (medsave.Page[medsave.Patient], error) {
	if err := f.enter("ListPatients"); err != nil {
		return medsave.Page[medsave.Patient]{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = opts
	var items []medsave.Patient
	for _, p := range f.patients {
		items = append(items, p)
	}
	return medsave.Page[medsave.Patient]{Items: items, Total: medsave.FlexInt(len(items))}, nil
}

func (f *fakeRecords) GetPatient(_ context.Context, id string) (medsave.Patient, error) {
	if err := f.enter("GetPatient"); err != nil {
		return medsave.Patient{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return medsave.Patient{}, notFound(medsave.Patients)
	}
	return p, nil
}

func (f *fakeRecords) SavePatient(_ context.Context, id string, p medsave.Patient) (string, error) {
	if err := f.enter("SavePatient"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id = f.assign(id)
	p.ID = medsave.FlexString(id)
	f.patients[id] = p
	return id, nil
}

func listOf[T any](f *fakeRecords, method string, m map[string][]T, key string) (medsave.Page[T], error) {
	if err := f.enter(method); err != nil {
		return medsave.Page[T]{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	items := m[key]
	return medsave.Page[T]{Items: items, Total: medsave.FlexInt(len(items))}, nil
}

func (f *fakeRecords) ListPrescriptions(_ context.Context, patientID string) (medsave.Page[medsave.Prescription], error) {
	return listOf(f, "ListPrescriptions", f.prescriptions, patientID)
}

func (f *fakeRecords) ListMedicalHistories(_ context.Context, rxID string) (medsave.Page[medsave.MedicalHistory], error) {
	return listOf(f, "ListMedicalHistories", f.medical, rxID)
}

func (f *fakeRecords) ListSurgicalHistories(_ context.Context, rxID string) (medsave.Page[medsave.SurgicalHistory], error) {
	return listOf(f, "ListSurgicalHistories", f.surgical, rxID)
}

func (f *fakeRecords) ListHypersensitivities(_ context.Context, rxID string) (medsave.Page[medsave.Hypersensitivity], error) {
	return listOf(f, "ListHypersensitivities", f.hyper, rxID)
}

func (f *fakeRecords) ListVitals(_ context.Context, rxID string) (medsave.Page[medsave.VitalSigns], error) {
	return listOf(f, "ListVitals", f.vitals, rxID)
}

func (f *fakeRecords) ListPhysicalExams(_ context.Context, rxID string) (medsave.Page[medsave.PhysicalExam], error) {
	return listOf(f, "ListPhysicalExams", f.exams, rxID)
}

func (f *fakeRecords) SaveBundle(_ context.Context, b medsave.Bundle) (medsave.BundleReceipt, error) {
	if err := f.enter("SaveBundle"); err != nil {
		return medsave.BundleReceipt{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundles = append(f.bundles, b)
	return f.receipt, nil
}

// -- Other dependencies --

type fakePostal struct {
	mu     sync.Mutex
	places map[string]postal.Place
	err    error
	calls  int
}

func (p *fakePostal) Lookup(_ context.Context, pin string) (postal.Place, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return postal.Place{}, p.err
	}
	place, ok := p.places[pin]
	if !ok {
		return postal.Place{}, postal.ErrInvalidPin
	}
	return place, nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(draftID string) (string, time.Time, error) {
	return "token-" + draftID, time.Now().Add(time.Hour), nil
}

type fakeAllocator struct {
	mu    sync.Mutex
	seq   int
	weak  bool
	calls int
}

func (a *fakeAllocator) Next(_ context.Context, now time.Time) derive.Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.seq++
	return derive.Allocation{
		Number:        derive.RegistrationDatePrefix(now) + "0000" + strconv.Itoa(a.seq),
		Sequence:      a.seq,
		Authoritative: !a.weak,
	}
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	svc       *Service
	records   *fakeRecords
	postal    *fakePostal
	sessions  *session.Memory
	allocator *fakeAllocator
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	env := &testEnv{
		records:   newFakeRecords(),
		postal:    &fakePostal{places: map[string]postal.Place{}},
		sessions:  session.NewMemory(time.Hour),
		allocator: &fakeAllocator{},
	}
	deps := Deps{
		Sessions:  env.sessions,
		Records:   env.records,
		Postal:    env.postal,
		Tokens:    fakeTokens{},
		Allocator: env.allocator,
		Clock:     fixedClock{testNow},
		Logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.svc = NewService(deps)
	return env
}

// start opens a draft and fails the test on error.
func (env *testEnv) start(t *testing.T) string {
	t.Helper()
	started, err := env.svc.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return started.ID
}

func (env *testEnv) doc(t *testing.T, id string) *Draft {
	t.Helper()
	d, err := env.svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	return d
}
