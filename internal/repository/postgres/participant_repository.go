package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restoPlay/business/registration"
	"restoPlay/business/session"
	"restoPlay/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

const createPartitionSQL = `CREATE TABLE IF NOT EXISTS ? (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	phone TEXT NOT NULL UNIQUE,
	token TEXT NOT NULL UNIQUE,
	game_played BOOLEAN NOT NULL DEFAULT FALSE,
	played_on TIMESTAMPTZ,
	play_history JSONB,
	rating SMALLINT CHECK (rating BETWEEN 1 AND 5),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// ParticipantRepository stores participants in one table per tenant. Only table
// names registered at construction are ever queried.
type ParticipantRepository struct {
	DB         *gorm.DB
	partitions map[string]struct{}
}

var (
	_ registration.ParticipantRepository = (*ParticipantRepository)(nil)
	_ session.ParticipantRepository      = (*ParticipantRepository)(nil)
)

func NewParticipantRepository(db *gorm.DB, partitions ...string) *ParticipantRepository {
	allowed := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		allowed[p] = struct{}{}
	}

	return &ParticipantRepository{
		DB:         db,
		partitions: allowed,
	}
}

func (r *ParticipantRepository) table(ctx context.Context, name string) (*gorm.DB, error) {
	if _, ok := r.partitions[name]; !ok {
		return nil, fmt.Errorf("unknown table %q: %w", name, domain.ErrInvalidTenant)
	}

	return r.DB.WithContext(ctx).Table(name), nil
}

// EnsurePartitions creates every known table that does not exist yet.
func (r *ParticipantRepository) EnsurePartitions(ctx context.Context) error {
	for name := range r.partitions {
		if err := r.DB.WithContext(ctx).Exec(createPartitionSQL, clause.Table{Name: name}).Error; err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}

	return nil
}

func (r *ParticipantRepository) FindByPhone(ctx context.Context, partition, phone string) (domain.Participant, error) {
	return r.findBy(ctx, partition, "phone", phone)
}

func (r *ParticipantRepository) FindByToken(ctx context.Context, partition, token string) (domain.Participant, error) {
	return r.findBy(ctx, partition, "token", token)
}

func (r *ParticipantRepository) findBy(ctx context.Context, partition, column, value string) (domain.Participant, error) {
	q, err := r.table(ctx, partition)
	if err != nil {
		return domain.Participant{}, err
	}

	var participant domain.Participant
	err = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Participant{}, domain.ErrRecordNotFound
		}
		return domain.Participant{}, err
	}

	return participant, nil
}

// CreateIfAbsent inserts with ON CONFLICT (phone) DO NOTHING and reports whether the
// row was written.
func (r *ParticipantRepository) CreateIfAbsent(ctx context.Context, partition string, participant *domain.Participant) (bool, error) {
	q, err := r.table(ctx, partition)
	if err != nil {
		return false, err
	}

	result := q.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(participant)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, fmt.Errorf("%w: %v", domain.ErrDuplicateRecord, result.Error)
		}
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *ParticipantRepository) MarkPlayed(ctx context.Context, partition, token string, at time.Time, appendHistory bool) (int64, error) {
	q, err := r.table(ctx, partition)
	if err != nil {
		return 0, err
	}

	updates := map[string]interface{}{
		"game_played": true,
		"played_on":   at,
	}
	if appendHistory {
		updates["play_history"] = gorm.Expr("COALESCE(play_history, '[]'::jsonb) || jsonb_build_array(?::timestamptz)", at)
	}

	result := q.Where("token = ?", token).Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func (r *ParticipantRepository) SetRating(ctx context.Context, partition, token string, rating int) (int64, error) {
	q, err := r.table(ctx, partition)
	if err != nil {
		return 0, err
	}

	result := q.Where("token = ?", token).Update("rating", rating)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	return errors.Is(err, gorm.ErrDuplicatedKey)
}
