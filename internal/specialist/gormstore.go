package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// GormStore is the gorm-backed Store, used with postgres or sqlite.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (r *GormStore) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := r.db.WithContext(ctx).Unscoped().Model(&Specialist{}).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

func (r *GormStore) CreateSpecialist(ctx context.Context, sp *Specialist) error {
	err := r.db.WithContext(ctx).Omit("ServiceOfferings", "Media").Create(sp).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateSlug, err)
	}
	return err
}

func preloadRelations(q *gorm.DB) *gorm.DB {
	return q.
		Preload("ServiceOfferings", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC").Order("created_at ASC")
		})
}

func (r *GormStore) GetSpecialist(ctx context.Context, id string) (*Specialist, error) {
	var sp Specialist
	err := preloadRelations(r.db.WithContext(ctx)).First(&sp, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get specialist: %w", err)
	}
	withEmptyRelations(&sp)
	return &sp, nil
}

func (r *GormStore) ListSpecialists(ctx context.Context, f ListFilter) ([]Specialist, int64, error) {
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&Specialist{})
		switch f.Status {
		case "draft":
			q = q.Where("is_draft = ?", true)
		case "published":
			q = q.Where("is_draft = ?", false)
		}
		if f.Search != "" {
			// LOWER/LIKE keeps the query portable between postgres and sqlite
			pattern := "%" + strings.ToLower(f.Search) + "%"
			q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(slug) LIKE ?)", pattern, pattern, pattern)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count specialists: %w", err)
	}

	specialists := []Specialist{}
	err := preloadRelations(filtered()).
		Order("created_at DESC").
		Limit(f.Limit).
		Offset(f.Offset()).
		Find(&specialists).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list specialists: %w", err)
	}
	for i := range specialists {
		withEmptyRelations(&specialists[i])
	}
	return specialists, total, nil
}

func (r *GormStore) UpdateSpecialist(ctx context.Context, sp *Specialist) error {
	res := r.db.WithContext(ctx).Model(&Specialist{}).Where("id = ?", sp.ID).Updates(map[string]any{
		"title":               sp.Title,
		"slug":                sp.Slug,
		"description":         sp.Description,
		"base_price":          sp.BasePrice,
		"platform_fee":        sp.PlatformFee,
		"final_price":         sp.FinalPrice,
		"duration_days":       sp.DurationDays,
		"is_draft":            sp.IsDraft,
		"verification_status": sp.VerificationStatus,
		"is_verified":         sp.IsVerified,
		"updated_at":          sp.UpdatedAt,
	})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateSlug, res.Error)
	}
	if res.Error != nil {
		return fmt.Errorf("update specialist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormStore) SoftDeleteSpecialist(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Specialist{}).Where("id = ?", id).
		Updates(map[string]any{"deleted_at": at, "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("delete specialist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormStore) SetDraftBySlug(ctx context.Context, slug string, isDraft bool, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Specialist{}).Where("slug = ?", slug).
		Updates(map[string]any{"is_draft": isDraft, "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("set draft state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormStore) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := func() *gorm.DB {
			return tx.Unscoped().Model(&Specialist{}).Select("id").
				Where("deleted_at IS NOT NULL AND deleted_at < ?", before)
		}

		if err := tx.Where("specialist_id IN (?)", expired()).Delete(&Media{}).Error; err != nil {
			return fmt.Errorf("purge media: %w", err)
		}
		if err := tx.Where("specialist_id IN (?)", expired()).Delete(&ServiceOffering{}).Error; err != nil {
			return fmt.Errorf("purge service_offerings: %w", err)
		}
		res := tx.Unscoped().Where("deleted_at IS NOT NULL AND deleted_at < ?", before).Delete(&Specialist{})
		if res.Error != nil {
			return fmt.Errorf("purge specialists: %w", res.Error)
		}
		purged = res.RowsAffected
		return nil
	})
	return purged, err
}

func (r *GormStore) CreateOffering(ctx context.Context, o *ServiceOffering) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

func (r *GormStore) DeleteOfferings(ctx context.Context, specialistID string) error {
	if err := r.db.WithContext(ctx).Where("specialist_id = ?", specialistID).Delete(&ServiceOffering{}).Error; err != nil {
		return fmt.Errorf("delete offerings: %w", err)
	}
	return nil
}

func (r *GormStore) CreateMedia(ctx context.Context, m *Media) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

func (r *GormStore) DeleteMediaSlot(ctx context.Context, specialistID string, slot int) error {
	err := r.db.WithContext(ctx).
		Where("specialist_id = ? AND display_order = ?", specialistID, slot).
		Delete(&Media{}).Error
	if err != nil {
		return fmt.Errorf("delete media slot %d: %w", slot, err)
	}
	return nil
}

func (r *GormStore) ListPlatformFees(ctx context.Context, activeOnly bool) ([]PlatformFee, error) {
	q := r.db.WithContext(ctx).Model(&PlatformFee{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	fees := []PlatformFee{}
	if err := q.Order("fee_name ASC").Find(&fees).Error; err != nil {
		return nil, fmt.Errorf("list platform fees: %w", err)
	}
	return fees, nil
}

func (r *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormStore) InTx(ctx context.Context, fn func(Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
