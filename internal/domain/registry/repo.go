package registry

import (
	"context"
	"time"

	"github.com/medsave/rxwizard/internal/domain/derive"
	"github.com/medsave/rxwizard/internal/platform/medsave"
)

// Records is the part of the MedSave API the management pages use.
// *medsave.Client satisfies it.
type Records interface {
	ListHospitals(ctx context.Context, opts medsave.ListOptions) (medsave.Page[medsave.Hospital], error)
	GetHospital(ctx context.Context, id string) (medsave.Hospital, error)
	SaveHospital(ctx context.Context, id string, h medsave.Hospital) (string, error)
	ListDoctors(ctx context.Context, opts medsave.ListOptions) (medsave.Page[medsave.Doctor], error)
	SaveDoctor(ctx context.Context, id string, d medsave.Doctor) (string, error)
	ListPatients(ctx context.Context, opts medsave.ListOptions) (medsave.Page[medsave.Patient], error)
	Delete(ctx context.Context, entity medsave.Entity, id string) error
}

type RegistrationAllocator interface {
	Next(ctx context.Context, now time.Time) derive.Allocation
}
