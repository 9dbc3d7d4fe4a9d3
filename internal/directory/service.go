package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/cache"
	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
)

var hospitalsKey = cache.Key("directory", "hospitals")

type Service struct {
	repo      RepositoryInterface
	cache     cache.Cache
	ttl       time.Duration
	provider  auth.Provider
	publisher messaging.PublisherInterface
}

func NewService(repo RepositoryInterface, c cache.Cache, ttl time.Duration, provider auth.Provider, publisher messaging.PublisherInterface) *Service {
	return &Service{
		repo:      repo,
		cache:     c,
		ttl:       ttl,
		provider:  provider,
		publisher: publisher,
	}
}

// ListHospitals serves the hospital list from the cache, loading it on a miss.
// Cache failures fall through to the repository.
func (s *Service) ListHospitals(ctx context.Context) ([]Hospital, error) {
	var hospitals []Hospital
	err := cache.GetJSON(ctx, s.cache, hospitalsKey, &hospitals)
	if err == nil {
		return hospitals, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Ctx(ctx).Warn().Err(err).Msg("hospital cache read failed")
	}

	hospitals, err = s.repo.ListHospitals(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, hospitalsKey, hospitals, s.ttl); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("hospital cache write failed")
	}
	return hospitals, nil
}

func (s *Service) GetHospital(ctx context.Context, id string) (*Hospital, error) {
	return s.repo.GetHospital(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error) {
	return s.repo.ListDoctors(ctx, f)
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, id)
}

// RegisterDoctor creates the provider account, then the doctor rows bound to hospitalID.
func (s *Service) RegisterDoctor(ctx context.Context, hospitalID string, req RegisterDoctorRequest) (*Doctor, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hospital, err := s.repo.GetHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	user, _, err := s.provider.SignUp(ctx, auth.SignUpRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     auth.RoleDoctor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create doctor account: %w", err)
	}

	doctor, err := s.repo.CreateDoctor(ctx, DoctorAccount{
		ID:             user.ID,
		Name:           req.Name,
		Email:          req.Email,
		HospitalID:     hospital.ID,
		Specialization: req.Specialization,
		Qualification:  req.Qualification,
		Experience:     req.Experience,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("failed to store doctor, rolling back account")
		if delErr := s.provider.DeleteUser(ctx, user.ID); delErr != nil {
			log.Ctx(ctx).Error().Err(delErr).Str("user_id", user.ID).
				Msg("orphaned provider account: doctor rollback failed")
		}
		return nil, err
	}
	doctor.HospitalName = hospital.Name

	if err := s.cache.Delete(ctx, hospitalsKey); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("hospital cache invalidation failed")
	}

	if s.publisher != nil {
		event := messaging.DoctorRegisteredEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventDoctorRegistered),
			Data: messaging.DoctorRegisteredData{
				DoctorID:       doctor.ID,
				HospitalID:     hospital.ID,
				Email:          doctor.Email,
				Specialization: doctor.Specialization,
			},
		}
		if err := s.publisher.Publish(ctx, messaging.EventDoctorRegistered, event); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to publish doctor.registered event")
		}
	}

	log.Ctx(ctx).Info().Str("doctor_id", doctor.ID).Str("hospital_id", hospital.ID).Msg("doctor registered")
	return doctor, nil
}
