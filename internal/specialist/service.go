package specialist

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// StructValidator validates tagged input structs. echo.Validator satisfies it.
type StructValidator interface {
	Validate(i interface{}) error
}

type Option func(*Service)

// FileSource stores the images sent with a create request. The service runs it
// only once the input has passed validation.
type FileSource func(ctx context.Context) ([]Attachment, error)

// SlotSource stores the per-slot images of an update request, keyed by
// display_order. It runs after validation and after the listing is found.
type SlotSource func(ctx context.Context) (map[int]Attachment, error)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCollisionHook is called once for every slug candidate that is already taken.
func WithCollisionHook(fn func()) Option {
	return func(s *Service) { s.onCollision = fn }
}

// Service runs the specialist lifecycle against a Store.
type Service struct {
	store       Store
	validator   StructValidator
	now         func() time.Time
	onCollision func()
}

func NewService(store Store, v StructValidator, opts ...Option) *Service {
	s := &Service{
		store:       store,
		validator:   v,
		now:         func() time.Time { return time.Now().UTC() },
		onCollision: func() {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// validate runs struct validation on a create or update input.
func (s *Service) validate(in interface{}) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.Validate(in); err != nil {
		return Validation(err.Error())
	}
	return nil
}

// List returns one page of specialists and the total match count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Specialist, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	// past the last representable offset; the page is empty either way
	if f.Page-1 > math.MaxInt/f.Limit {
		f.Page = math.MaxInt/f.Limit + 1
	}
	switch f.Status {
	case "draft", "published":
	default:
		f.Status = "all"
	}
	items, total, err := s.store.ListSpecialists(ctx, f)
	if err != nil {
		return nil, 0, Internal(err)
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Specialist, error) {
	if !validID(id) {
		return nil, NotFound("Specialist not found")
	}
	sp, err := s.store.GetSpecialist(ctx, id)
	if err != nil {
		return nil, asAppError(err)
	}
	return sp, nil
}

// Create persists the listing under a fresh unique slug, then attaches files,
// media URLs and offerings concurrently.
func (s *Service) Create(ctx context.Context, in *CreateInput, src FileSource) (*Specialist, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	var files []Attachment
	if src != nil {
		var err error
		if files, err = src(ctx); err != nil {
			return nil, err
		}
	}

	now := s.now()
	sp := &Specialist{
		ID:                 uuid.NewString(),
		Title:              in.Title,
		Description:        in.Description,
		BasePrice:          in.BasePrice,
		PlatformFee:        in.PlatformFee,
		FinalPrice:         FinalPrice(in.BasePrice, in.PlatformFee),
		DurationDays:       in.DurationDays,
		IsDraft:            in.IsDraft,
		VerificationStatus: in.VerificationStatus,
		IsVerified:         in.IsVerified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	base := SlugBase(in.Title)
	if custom := NormalizeSlug(in.Slug); custom != "" {
		base = custom
	}

	err := s.store.InTx(ctx, func(tx Store) error {
		slug, err := s.uniqueSlug(ctx, tx, base, "")
		if err != nil {
			return err
		}
		sp.Slug = slug
		return tx.CreateSpecialist(ctx, sp)
	})
	if err != nil {
		return nil, asAppError(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			return s.store.CreateMedia(gctx, s.newMedia(sp.ID, i, f))
		})
	}
	for i, url := range in.MediaURLs {
		if url == "" {
			continue
		}
		g.Go(func() error {
			return s.store.CreateMedia(gctx, s.newMedia(sp.ID, i, urlAttachment(i, url)))
		})
	}
	for _, o := range in.ServiceOfferings {
		g.Go(func() error {
			return s.store.CreateOffering(gctx, s.newOffering(sp.ID, o))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Internal(fmt.Errorf("attach to specialist %s: %w", sp.ID, err))
	}

	return s.Get(ctx, sp.ID)
}

// Update merges in over the stored listing. src maps display_order to a new
// upload; media URLs in the payload override uploads for the same slot.
func (s *Service) Update(ctx context.Context, id string, in *UpdateInput, src SlotSource) (*Specialist, error) {
	if !validID(id) {
		return nil, NotFound("Specialist not found")
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	var slots map[int]Attachment
	if src != nil {
		var err error
		if slots, err = src(ctx); err != nil {
			return nil, err
		}
	}

	err := s.store.InTx(ctx, func(tx Store) error {
		sp, err := tx.GetSpecialist(ctx, id)
		if err != nil {
			return err
		}

		if in.Title != nil && *in.Title != sp.Title {
			slug, err := s.uniqueSlug(ctx, tx, SlugBase(*in.Title), id)
			if err != nil {
				return err
			}
			sp.Title = *in.Title
			sp.Slug = slug
		}
		repriceOnUpdate(sp, in.BasePrice, in.PlatformFee)

		if in.Description != nil {
			sp.Description = in.Description
		}
		if in.DurationDays != nil {
			sp.DurationDays = *in.DurationDays
		}
		if in.IsDraft != nil {
			sp.IsDraft = *in.IsDraft
		}
		if in.VerificationStatus != nil {
			sp.VerificationStatus = *in.VerificationStatus
		}
		if in.IsVerified != nil {
			sp.IsVerified = *in.IsVerified
		}
		sp.UpdatedAt = s.now()
		return tx.UpdateSpecialist(ctx, sp)
	})
	if err != nil {
		return nil, asAppError(err)
	}

	replace := make(map[int]Attachment, MaxMediaSlots)
	for slot, a := range slots {
		if slot >= 0 && slot < MaxMediaSlots {
			replace[slot] = a
		}
	}
	for i, url := range in.MediaURLs {
		if url != "" {
			replace[i] = urlAttachment(i, url)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if in.ReplaceOfferings {
		g.Go(func() error {
			return s.replaceOfferings(gctx, id, in.ServiceOfferings)
		})
	}
	for slot, a := range replace {
		g.Go(func() error {
			if err := s.store.DeleteMediaSlot(gctx, id, slot); err != nil {
				return err
			}
			return s.store.CreateMedia(gctx, s.newMedia(id, slot, a))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Internal(fmt.Errorf("update attachments of specialist %s: %w", id, err))
	}

	return s.Get(ctx, id)
}

func (s *Service) replaceOfferings(ctx context.Context, id string, offerings []OfferingInput) error {
	if err := s.store.DeleteOfferings(ctx, id); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, o := range offerings {
		g.Go(func() error {
			return s.store.CreateOffering(gctx, s.newOffering(id, o))
		})
	}
	return g.Wait()
}

// Delete soft-deletes the listing.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return NotFound("Specialist not found")
	}
	return asAppError(s.store.SoftDeleteSpecialist(ctx, id, s.now()))
}

// TogglePublish flips is_draft, or sets it when isDraft is given.
func (s *Service) TogglePublish(ctx context.Context, id string, isDraft *bool) (*Specialist, error) {
	if !validID(id) {
		return nil, NotFound("Specialist not found")
	}
	err := s.store.InTx(ctx, func(tx Store) error {
		sp, err := tx.GetSpecialist(ctx, id)
		if err != nil {
			return err
		}
		if isDraft == nil {
			sp.IsDraft = !sp.IsDraft
		} else {
			sp.IsDraft = *isDraft
		}
		sp.UpdatedAt = s.now()
		return tx.UpdateSpecialist(ctx, sp)
	})
	if err != nil {
		return nil, asAppError(err)
	}
	return s.Get(ctx, id)
}

// SetDraftBySlug is the admin path for publishing without knowing the id.
func (s *Service) SetDraftBySlug(ctx context.Context, slug string, isDraft bool) error {
	return asAppError(s.store.SetDraftBySlug(ctx, slug, isDraft, s.now()))
}

// PurgeDeleted hard-deletes listings soft-deleted more than olderThan ago.
func (s *Service) PurgeDeleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.store.PurgeDeleted(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, Internal(err)
	}
	return n, nil
}

func (s *Service) PlatformFees(ctx context.Context) ([]PlatformFee, error) {
	fees, err := s.store.ListPlatformFees(ctx, true)
	if err != nil {
		return nil, Internal(err)
	}
	return fees, nil
}

// Ready pings the store.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) newMedia(specialistID string, slot int, a Attachment) *Media {
	now := s.now()
	m := &Media{
		ID:           uuid.NewString(),
		SpecialistID: specialistID,
		FileName:     a.FileName,
		FilePath:     a.FilePath,
		FileSize:     a.FileSize,
		DisplayOrder: slot,
		MediaType:    MediaImage,
		UploadedAt:   &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if m.FileName == "" {
		m.FileName = "image"
	}
	if a.MimeType != "" {
		mt := a.MimeType
		m.MimeType = &mt
	}
	return m
}

func (s *Service) newOffering(specialistID string, o OfferingInput) *ServiceOffering {
	now := s.now()
	return &ServiceOffering{
		ID:           uuid.NewString(),
		SpecialistID: specialistID,
		Name:         o.Name,
		Description:  o.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func urlAttachment(slot int, url string) Attachment {
	return Attachment{FileName: fmt.Sprintf("image-%d", slot+1), FilePath: url}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
