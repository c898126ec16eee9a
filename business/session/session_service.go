package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"restoPlay/domain"
	"restoPlay/pkg/logger"
)

// ParticipantRepository contract interface. Updates report the number of rows touched.
type ParticipantRepository interface {
	FindByToken(ctx context.Context, partition, token string) (domain.Participant, error)
	MarkPlayed(ctx context.Context, partition, token string, at time.Time, appendHistory bool) (int64, error)
	SetRating(ctx context.Context, partition, token string, rating int) (int64, error)
}

const (
	minRating = 1
	maxRating = 5
)

type Config struct {
	MultiTenant      bool
	DefaultPartition string
	History          domain.HistoryPolicy
	// LenientTokens accepts updates that matched no row, as older clients expect.
	LenientTokens bool
}

type sessionService struct {
	repo ParticipantRepository
	cfg  Config
	now  func() time.Time
}

func NewSessionService(repo ParticipantRepository, cfg Config) *sessionService {
	if cfg.History == "" {
		cfg.History = domain.HistoryLatest
	}

	return &sessionService{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

// MarkPlayed flags the token's record as played and stamps the play time. Calling it
// again re-stamps the time.
func (s *sessionService) MarkPlayed(ctx context.Context, token string, tenant *domain.Tenant) (domain.PlayResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.PlayResult{}, fmt.Errorf("context error: %w", err)
	}

	partition, err := s.route(tenant)
	if err != nil {
		logger.Error("Mark played without table name", "error", err)
		return domain.PlayResult{}, err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.PlayResult{}, domain.ErrUnknownToken
	}

	playedAt := s.now().UTC()
	affected, err := s.repo.MarkPlayed(ctx, partition, token, playedAt, s.cfg.History == domain.HistoryAppend)
	if err != nil {
		logger.Error("Error updating game_played status", "partition", partition, "error", err)
		return domain.PlayResult{}, fmt.Errorf("%w: %w", domain.ErrStoreWriteFailed, err)
	}

	if err := s.checkAffected(affected, partition); err != nil {
		return domain.PlayResult{}, err
	}

	return domain.PlayResult{Token: token, PlayedAt: playedAt}, nil
}

// SetRating stores the post-game rating. The last write wins.
func (s *sessionService) SetRating(ctx context.Context, token string, rating float64, tenant *domain.Tenant) (domain.RatingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RatingResult{}, fmt.Errorf("context error: %w", err)
	}

	value, err := validateRating(rating)
	if err != nil {
		logger.Error("Invalid rating", "rating", rating)
		return domain.RatingResult{}, err
	}

	partition, err := s.route(tenant)
	if err != nil {
		logger.Error("Set rating without table name", "error", err)
		return domain.RatingResult{}, err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.RatingResult{}, domain.ErrUnknownToken
	}

	affected, err := s.repo.SetRating(ctx, partition, token, value)
	if err != nil {
		logger.Error("Error updating rating", "partition", partition, "error", err)
		return domain.RatingResult{}, fmt.Errorf("%w: %w", domain.ErrStoreWriteFailed, err)
	}

	if err := s.checkAffected(affected, partition); err != nil {
		return domain.RatingResult{}, err
	}

	return domain.RatingResult{Token: token, Rating: value}, nil
}

// Status returns the current state of a token's record.
func (s *sessionService) Status(ctx context.Context, token string, tenant *domain.Tenant) (domain.Participant, error) {
	partition, err := s.route(tenant)
	if err != nil {
		return domain.Participant{}, err
	}

	p, err := s.repo.FindByToken(ctx, partition, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Participant{}, domain.ErrUnknownToken
		}
		logger.Error("Failed to find participant by token", "partition", partition, "error", err)
		return domain.Participant{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	return p, nil
}

func (s *sessionService) route(tenant *domain.Tenant) (string, error) {
	if !s.cfg.MultiTenant {
		return s.cfg.DefaultPartition, nil
	}
	if tenant == nil {
		return "", domain.ErrMissingTenant
	}

	return tenant.Partition, nil
}

func (s *sessionService) checkAffected(affected int64, partition string) error {
	if affected > 0 || s.cfg.LenientTokens {
		return nil
	}

	logger.Warn("Update matched no participant", "partition", partition)
	return domain.ErrUnknownToken
}

func validateRating(rating float64) (int, error) {
	if math.IsNaN(rating) || rating != math.Trunc(rating) || rating < minRating || rating > maxRating {
		return 0, domain.ErrInvalidRating
	}

	return int(rating), nil
}
