// Package memory holds an in-process participant store with the same uniqueness
// rules as the postgres partitions.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"restoPlay/domain"
)

type partition struct {
	rows    []*domain.Participant
	byPhone map[string]*domain.Participant
	byToken map[string]*domain.Participant
}

type ParticipantRepository struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	nextID     uint
}

func NewParticipantRepository(partitions ...string) *ParticipantRepository {
	r := &ParticipantRepository{partitions: make(map[string]*partition, len(partitions))}
	for _, name := range partitions {
		r.partitions[name] = &partition{
			byPhone: map[string]*domain.Participant{},
			byToken: map[string]*domain.Participant{},
		}
	}

	return r
}

func (r *ParticipantRepository) table(name string) (*partition, error) {
	p, ok := r.partitions[name]
	if !ok {
		return nil, fmt.Errorf("unknown table %q: %w", name, domain.ErrInvalidTenant)
	}

	return p, nil
}

func (r *ParticipantRepository) FindByPhone(ctx context.Context, table, phone string) (domain.Participant, error) {
	return r.find(ctx, table, func(p *partition) *domain.Participant { return p.byPhone[phone] })
}

func (r *ParticipantRepository) FindByToken(ctx context.Context, table, token string) (domain.Participant, error) {
	return r.find(ctx, table, func(p *partition) *domain.Participant { return p.byToken[token] })
}

func (r *ParticipantRepository) find(ctx context.Context, table string, pick func(*partition) *domain.Participant) (domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Participant{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, err := r.table(table)
	if err != nil {
		return domain.Participant{}, err
	}

	row := pick(p)
	if row == nil {
		return domain.Participant{}, domain.ErrRecordNotFound
	}

	return clone(row), nil
}

// CreateIfAbsent inserts the participant unless its phone is already present.
// A token collision is reported as ErrDuplicateRecord.
func (r *ParticipantRepository) CreateIfAbsent(ctx context.Context, table string, participant *domain.Participant) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.table(table)
	if err != nil {
		return false, err
	}

	if _, ok := p.byPhone[participant.Phone]; ok {
		return false, nil
	}
	if _, ok := p.byToken[participant.Token]; ok {
		return false, fmt.Errorf("token: %w", domain.ErrDuplicateRecord)
	}

	r.nextID++
	participant.ID = r.nextID
	participant.CreatedAt = time.Now().UTC()

	row := clone(participant)
	p.rows = append(p.rows, &row)
	p.byPhone[row.Phone] = &row
	p.byToken[row.Token] = &row

	return true, nil
}

func (r *ParticipantRepository) MarkPlayed(ctx context.Context, table, token string, at time.Time, appendHistory bool) (int64, error) {
	return r.update(ctx, table, token, func(row *domain.Participant) error {
		if appendHistory {
			var history []time.Time
			if len(row.PlayHistory) > 0 {
				if err := json.Unmarshal(row.PlayHistory, &history); err != nil {
					return fmt.Errorf("decode play history: %w", err)
				}
			}
			raw, err := json.Marshal(append(history, at))
			if err != nil {
				return err
			}
			row.PlayHistory = raw
		}

		stamp := at
		row.GamePlayed = true
		row.PlayedOn = &stamp

		return nil
	})
}

func (r *ParticipantRepository) SetRating(ctx context.Context, table, token string, rating int) (int64, error) {
	return r.update(ctx, table, token, func(row *domain.Participant) error {
		value := rating
		row.Rating = &value
		return nil
	})
}

func (r *ParticipantRepository) update(ctx context.Context, table, token string, apply func(*domain.Participant) error) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.table(table)
	if err != nil {
		return 0, err
	}

	row, ok := p.byToken[token]
	if !ok {
		return 0, nil
	}
	if err := apply(row); err != nil {
		return 0, err
	}

	return 1, nil
}

func clone(p *domain.Participant) domain.Participant {
	out := *p
	if p.PlayedOn != nil {
		t := *p.PlayedOn
		out.PlayedOn = &t
	}
	if p.Rating != nil {
		v := *p.Rating
		out.Rating = &v
	}
	if p.PlayHistory != nil {
		out.PlayHistory = append([]byte(nil), p.PlayHistory...)
	}

	return out
}
