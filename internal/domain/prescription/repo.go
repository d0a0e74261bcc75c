package prescription

import (
	"context"
	"time"

	"github.com/medsave/rxwizard/internal/domain/derive"
	"github.com/medsave/rxwizard/internal/platform/medsave"
	"github.com/medsave/rxwizard/internal/platform/postal"
)

// Records is the slice of the MedSave API the wizard uses. *medsave.Client
// satisfies it.
type Records interface {
	GetHospital(ctx context.Context, id string) (medsave.Hospital, error)
	SaveHospital(ctx context.Context, id string, h medsave.Hospital) (string, error)
	GetDoctor(ctx context.Context, id string) (medsave.Doctor, error)
	SaveDoctor(ctx context.Context, id string, d medsave.Doctor) (string, error)

	ListPatients(ctx context.Context, opts medsave.ListOptions) (medsave.Page[medsave.Patient], error)
	GetPatient(ctx context.Context, id string) (medsave.Patient, error)
	SavePatient(ctx context.Context, id string, p medsave.Patient) (string, error)

	ListPrescriptions(ctx context.Context, patientID string) (medsave.Page[medsave.Prescription], error)
	ListMedicalHistories(ctx context.Context, prescriptionID string) (medsave.Page[medsave.MedicalHistory], error)
	ListSurgicalHistories(ctx context.Context, prescriptionID string) (medsave.Page[medsave.SurgicalHistory], error)
	ListHypersensitivities(ctx context.Context, prescriptionID string) (medsave.Page[medsave.Hypersensitivity], error)
	ListVitals(ctx context.Context, prescriptionID string) (medsave.Page[medsave.VitalSigns], error)
	ListPhysicalExams(ctx context.Context, prescriptionID string) (medsave.Page[medsave.PhysicalExam], error)

	SaveBundle(ctx context.Context, b medsave.Bundle) (medsave.BundleReceipt, error)
}

type PostalLookup interface {
	Lookup(ctx context.Context, pin string) (postal.Place, error)
}

type TokenIssuer interface {
	Issue(draftID string) (string, time.Time, error)
}

type RegistrationAllocator interface {
	Next(ctx context.Context, now time.Time) derive.Allocation
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
