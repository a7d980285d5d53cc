package specialist

import (
	"context"
	"time"
)

// Store is the persistence boundary of the listing service. Reads never
// return soft-deleted specialists, except SlugExists which sees every row.
type Store interface {
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)

	CreateSpecialist(ctx context.Context, sp *Specialist) error
	GetSpecialist(ctx context.Context, id string) (*Specialist, error)
	ListSpecialists(ctx context.Context, f ListFilter) ([]Specialist, int64, error)
	UpdateSpecialist(ctx context.Context, sp *Specialist) error
	SoftDeleteSpecialist(ctx context.Context, id string, at time.Time) error
	SetDraftBySlug(ctx context.Context, slug string, isDraft bool, at time.Time) error
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)

	CreateOffering(ctx context.Context, o *ServiceOffering) error
	DeleteOfferings(ctx context.Context, specialistID string) error

	CreateMedia(ctx context.Context, m *Media) error
	DeleteMediaSlot(ctx context.Context, specialistID string, slot int) error

	ListPlatformFees(ctx context.Context, activeOnly bool) ([]PlatformFee, error)

	Ping(ctx context.Context) error
	// InTx runs fn against a Store bound to one transaction.
	InTx(ctx context.Context, fn func(Store) error) error
}

func withEmptyRelations(sp *Specialist) {
	if sp.ServiceOfferings == nil {
		sp.ServiceOfferings = []ServiceOffering{}
	}
	if sp.Media == nil {
		sp.Media = []Media{}
	}
}
