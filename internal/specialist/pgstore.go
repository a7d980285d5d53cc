package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is the pgx-backed Store
type PGStore struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, q: pool}
}

const specialistColumns = `id, average_rating, is_draft, total_number_of_ratings, title, slug, description,
        base_price, platform_fee, final_price, verification_status, is_verified, duration_days,
        purchases_count, created_at, updated_at`

func scanSpecialist(row pgx.Row, sp *Specialist) error {
	return row.Scan(
		&sp.ID, &sp.AverageRating, &sp.IsDraft, &sp.TotalNumberOfRatings, &sp.Title, &sp.Slug, &sp.Description,
		&sp.BasePrice, &sp.PlatformFee, &sp.FinalPrice, &sp.VerificationStatus, &sp.IsVerified, &sp.DurationDays,
		&sp.PurchasesCount, &sp.CreatedAt, &sp.UpdatedAt,
	)
}

func (s *PGStore) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM specialists WHERE slug = $1)`
	args := []any{slug}
	if excludeID != "" {
		query = `SELECT EXISTS (SELECT 1 FROM specialists WHERE slug = $1 AND id <> $2)`
		args = append(args, excludeID)
	}
	var exists bool
	if err := s.q.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func (s *PGStore) CreateSpecialist(ctx context.Context, sp *Specialist) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO specialists (id, average_rating, is_draft, total_number_of_ratings, title, slug, description,
            base_price, platform_fee, final_price, verification_status, is_verified, duration_days,
            purchases_count, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		sp.ID, sp.AverageRating, sp.IsDraft, sp.TotalNumberOfRatings, sp.Title, sp.Slug, sp.Description,
		sp.BasePrice, sp.PlatformFee, sp.FinalPrice, sp.VerificationStatus, sp.IsVerified, sp.DurationDays,
		sp.PurchasesCount, sp.CreatedAt, sp.UpdatedAt,
	)
	return translatePgError(err)
}

func (s *PGStore) GetSpecialist(ctx context.Context, id string) (*Specialist, error) {
	var sp Specialist
	err := scanSpecialist(s.q.QueryRow(ctx,
		`SELECT `+specialistColumns+` FROM specialists WHERE id = $1 AND deleted_at IS NULL`, id,
	), &sp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get specialist: %w", err)
	}

	list := []Specialist{sp}
	if err := s.loadRelations(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *PGStore) ListSpecialists(ctx context.Context, f ListFilter) ([]Specialist, int64, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any

	switch f.Status {
	case "draft":
		args = append(args, true)
		where = append(where, fmt.Sprintf("is_draft = $%d", len(args)))
	case "published":
		args = append(args, false)
		where = append(where, fmt.Sprintf("is_draft = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR slug ILIKE $%d)", n, n, n))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM specialists`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count specialists: %w", err)
	}

	args = append(args, f.Limit, f.Offset())
	query := `SELECT ` + specialistColumns + ` FROM specialists` + cond +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list specialists: %w", err)
	}
	defer rows.Close()

	specialists := []Specialist{}
	for rows.Next() {
		var sp Specialist
		if err := scanSpecialist(rows, &sp); err != nil {
			return nil, 0, fmt.Errorf("failed to parse specialist record: %w", err)
		}
		specialists = append(specialists, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.loadRelations(ctx, specialists); err != nil {
		return nil, 0, err
	}
	return specialists, total, nil
}

// loadRelations fills offerings and media (by slot) for every specialist in list.
func (s *PGStore) loadRelations(ctx context.Context, list []Specialist) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]*Specialist, len(list))
	for i := range list {
		ids[i] = list[i].ID
		index[list[i].ID] = &list[i]
		withEmptyRelations(&list[i])
	}

	rows, err := s.q.Query(ctx,
		`SELECT id, specialist_id, name, COALESCE(description, ''), created_at, updated_at
         FROM service_offerings WHERE specialist_id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return fmt.Errorf("load offerings: %w", err)
	}
	for rows.Next() {
		var o ServiceOffering
		if err := rows.Scan(&o.ID, &o.SpecialistID, &o.Name, &o.Description, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to parse offering record: %w", err)
		}
		sp := index[o.SpecialistID]
		sp.ServiceOfferings = append(sp.ServiceOfferings, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.q.Query(ctx,
		`SELECT id, specialist_id, file_name, COALESCE(file_path, ''), file_size, display_order, mime_type,
                media_type, uploaded_at, created_at, updated_at
         FROM media WHERE specialist_id = ANY($1) ORDER BY display_order, created_at`, ids)
	if err != nil {
		return fmt.Errorf("load media: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Media
		if err := rows.Scan(&m.ID, &m.SpecialistID, &m.FileName, &m.FilePath, &m.FileSize, &m.DisplayOrder, &m.MimeType,
			&m.MediaType, &m.UploadedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return fmt.Errorf("failed to parse media record: %w", err)
		}
		sp := index[m.SpecialistID]
		sp.Media = append(sp.Media, m)
	}
	return rows.Err()
}

func (s *PGStore) UpdateSpecialist(ctx context.Context, sp *Specialist) error {
	ct, err := s.q.Exec(ctx,
		`UPDATE specialists SET title = $2, slug = $3, description = $4, base_price = $5, platform_fee = $6,
            final_price = $7, duration_days = $8, is_draft = $9, verification_status = $10, is_verified = $11,
            updated_at = $12
         WHERE id = $1 AND deleted_at IS NULL`,
		sp.ID, sp.Title, sp.Slug, sp.Description, sp.BasePrice, sp.PlatformFee,
		sp.FinalPrice, sp.DurationDays, sp.IsDraft, sp.VerificationStatus, sp.IsVerified,
		sp.UpdatedAt,
	)
	if err != nil {
		return translatePgError(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SoftDeleteSpecialist(ctx context.Context, id string, at time.Time) error {
	ct, err := s.q.Exec(ctx,
		`UPDATE specialists SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("delete specialist: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetDraftBySlug(ctx context.Context, slug string, isDraft bool, at time.Time) error {
	ct, err := s.q.Exec(ctx,
		`UPDATE specialists SET is_draft = $2, updated_at = $3 WHERE slug = $1 AND deleted_at IS NULL`, slug, isDraft, at)
	if err != nil {
		return fmt.Errorf("set draft state: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := s.InTx(ctx, func(st Store) error {
		tx := st.(*PGStore)
		for _, table := range []string{"media", "service_offerings"} {
			if _, err := tx.q.Exec(ctx, `DELETE FROM `+table+` WHERE specialist_id IN (
                SELECT id FROM specialists WHERE deleted_at IS NOT NULL AND deleted_at < $1)`, before); err != nil {
				return fmt.Errorf("purge %s: %w", table, err)
			}
		}
		ct, err := tx.q.Exec(ctx, `DELETE FROM specialists WHERE deleted_at IS NOT NULL AND deleted_at < $1`, before)
		if err != nil {
			return fmt.Errorf("purge specialists: %w", err)
		}
		purged = ct.RowsAffected()
		return nil
	})
	return purged, err
}

func (s *PGStore) CreateOffering(ctx context.Context, o *ServiceOffering) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO service_offerings (id, specialist_id, name, description, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.SpecialistID, o.Name, o.Description, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteOfferings(ctx context.Context, specialistID string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM service_offerings WHERE specialist_id = $1`, specialistID); err != nil {
		return fmt.Errorf("delete offerings: %w", err)
	}
	return nil
}

func (s *PGStore) CreateMedia(ctx context.Context, m *Media) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO media (id, specialist_id, file_name, file_path, file_size, display_order, mime_type,
            media_type, uploaded_at, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.SpecialistID, m.FileName, m.FilePath, m.FileSize, m.DisplayOrder, m.MimeType,
		m.MediaType, m.UploadedAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteMediaSlot(ctx context.Context, specialistID string, slot int) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM media WHERE specialist_id = $1 AND display_order = $2`, specialistID, slot); err != nil {
		return fmt.Errorf("delete media slot %d: %w", slot, err)
	}
	return nil
}

func (s *PGStore) ListPlatformFees(ctx context.Context, activeOnly bool) ([]PlatformFee, error) {
	query := `SELECT id, fee_name, amount, currency, description, is_active, created_at, updated_at FROM platform_fee`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY fee_name`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list platform fees: %w", err)
	}
	defer rows.Close()

	fees := []PlatformFee{}
	for rows.Next() {
		var f PlatformFee
		if err := rows.Scan(&f.ID, &f.FeeName, &f.Amount, &f.Currency, &f.Description, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse platform fee record: %w", err)
		}
		fees = append(fees, f)
	}
	return fees, rows.Err()
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PGStore{pool: s.pool, q: tx, inTx: true})
	})
}

func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateSlug, pgErr.ConstraintName)
	}
	return err
}
