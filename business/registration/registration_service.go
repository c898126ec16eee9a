package registration

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"restoPlay/business/identity"
	"restoPlay/domain"
	"restoPlay/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ParticipantRepository contract interface
type ParticipantRepository interface {
	FindByPhone(ctx context.Context, partition, phone string) (domain.Participant, error)
	CreateIfAbsent(ctx context.Context, partition string, participant *domain.Participant) (bool, error)
}

// Locker serializes registrations of the same identity.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NotificationRepository contract interface
type NotificationRepository interface {
	SendEmail(toName, toEmail, subject, message string) (err error)
}

const (
	SubjectGameLink   = "Your game is ready!"
	EmailBodyGameLink = `Hi %v, thanks for visiting %v.</br></br>Play here: %v`
)

type Config struct {
	// MultiTenant requires every registration to carry a resolved tenant.
	MultiTenant      bool
	DefaultPartition string
	// GameURL is the base of the link mailed after a fresh registration.
	GameURL string
}

type registrationService struct {
	repo      ParticipantRepository
	validate  *validator.Validate
	locker    Locker
	notifRepo NotificationRepository
	cfg       Config
	newToken  func() string
}

func NewRegistrationService(
	repo ParticipantRepository,
	validate *validator.Validate,
	locker Locker,
	notifRepo NotificationRepository,
	cfg Config,
) *registrationService {
	return &registrationService{
		repo:      repo,
		validate:  validate,
		locker:    locker,
		notifRepo: notifRepo,
		cfg:       cfg,
		newToken:  uuid.NewString,
	}
}

// Register returns the token of an identity, creating the record on first sight.
func (s *registrationService) Register(ctx context.Context, ident domain.Identity, tenant *domain.Tenant) (domain.RegistrationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RegistrationResult{}, fmt.Errorf("context error: %w", err)
	}

	partition, reward, err := s.route(tenant)
	if err != nil {
		logger.Error("Registration without a valid restaurant", "error", err)
		return domain.RegistrationResult{}, err
	}

	ident.Phone = identity.NormalizePhone(ident.Phone)
	if err := s.validate.Struct(ident); err != nil {
		logger.Error("Invalid registration details", "error", err)
		return domain.RegistrationResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidIdentity, err)
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, partition+":"+ident.Phone)
		if err != nil {
			logger.Error("Failed to acquire registration lock", "partition", partition, "error", err)
			return domain.RegistrationResult{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		defer unlock()
	}

	existing, err := s.repo.FindByPhone(ctx, partition, ident.Phone)
	if err == nil {
		return alreadyRegistered(existing, reward), nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		logger.Error("Failed to check user existence", "partition", partition, "error", err)
		return domain.RegistrationResult{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	participant := domain.Participant{
		Name:       ident.Name,
		Email:      ident.Email,
		Phone:      ident.Phone,
		Token:      s.newToken(),
		GamePlayed: false,
	}

	created, err := s.repo.CreateIfAbsent(ctx, partition, &participant)
	if err != nil {
		logger.Error("Failed to create participant", "partition", partition, "error", err)
		return domain.RegistrationResult{}, fmt.Errorf("%w: %w", domain.ErrStoreWriteFailed, err)
	}

	if !created {
		// a concurrent registration of the same phone won the insert
		winner, err := s.repo.FindByPhone(ctx, partition, ident.Phone)
		if err != nil {
			logger.Error("Failed to read concurrently registered participant", "partition", partition, "error", err)
			return domain.RegistrationResult{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return alreadyRegistered(winner, reward), nil
	}

	s.sendGameLink(participant, partition, tenant)

	return domain.RegistrationResult{
		Status: domain.StatusRegistered,
		Token:  participant.Token,
		Reward: reward,
	}, nil
}

func (s *registrationService) route(tenant *domain.Tenant) (string, *domain.Reward, error) {
	if !s.cfg.MultiTenant {
		return s.cfg.DefaultPartition, nil, nil
	}
	if tenant == nil {
		return "", nil, domain.ErrInvalidTenant
	}

	return tenant.Partition, tenant.Reward(), nil
}

func (s *registrationService) sendGameLink(p domain.Participant, partition string, tenant *domain.Tenant) {
	if s.notifRepo == nil || s.cfg.GameURL == "" || p.Email == "" {
		return
	}

	link, err := url.Parse(s.cfg.GameURL)
	if err != nil {
		logger.Warn("Invalid game url", "error", err)
		return
	}
	q := link.Query()
	q.Set("token", p.Token)
	q.Set("tableName", partition)
	link.RawQuery = q.Encode()

	venue := "us"
	if tenant != nil {
		venue = tenant.Name
	}

	err = s.notifRepo.SendEmail(p.Name, p.Email, SubjectGameLink, fmt.Sprintf(EmailBodyGameLink, p.Name, venue, link.String()))
	if err != nil {
		logger.Warn("Failed to send game link email", "error", err)
	}
}

func alreadyRegistered(p domain.Participant, reward *domain.Reward) domain.RegistrationResult {
	return domain.RegistrationResult{
		Status:       domain.StatusAlreadyRegistered,
		Token:        p.Token,
		LastPlayedAt: p.PlayedOn,
		Reward:       reward,
	}
}
