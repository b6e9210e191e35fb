package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/repository"
)

// UserAdminService is the console's user management: list accounts, create
// them with a chosen tier, adjust subscriptions, remove accounts.
type UserAdminService struct {
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

func NewUserAdminService(profiles repository.ProfileRepository, logger *slog.Logger) *UserAdminService {
	return &UserAdminService{
		profiles: profiles,
		logger:   logger,
	}
}

// List returns all accounts, newest first.
func (s *UserAdminService) List(ctx context.Context) ([]model.Profile, error) {
	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		s.logger.Error("failed to list profiles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/users: %w", apperror.Transient("loading accounts", err))
	}
	return profiles, nil
}

// Create adds a new account with the given tier. A premium account created
// here gets a billing period starting now with the end left to Update.
func (s *UserAdminService) Create(ctx context.Context, email, fullName string, tier model.Tier) (*model.Profile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if tier == "" {
		tier = model.TierFree
	}
	if !tier.Valid() {
		return nil, apperror.ValidationFailed("subscriptionTier",
			fmt.Sprintf("unknown subscription tier %q", tier))
	}

	p := &model.Profile{
		Email:            email,
		FullName:         strings.TrimSpace(fullName),
		SubscriptionTier: tier,
	}
	if tier == model.TierPremium {
		now := time.Now().UTC()
		p.SubscriptionStart = &now
	}

	if err := s.profiles.CreateProfile(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("account created by admin",
		slog.String("id", p.ID),
		slog.String("tier", string(tier)),
	)

	return p, nil
}

// Update rewrites an account's name and subscription fields.
func (s *UserAdminService) Update(ctx context.Context, id, fullName string, tier model.Tier, subscriptionEnd *time.Time) (*model.Profile, error) {
	if !tier.Valid() {
		return nil, apperror.ValidationFailed("subscriptionTier",
			fmt.Sprintf("unknown subscription tier %q", tier))
	}

	p, err := s.profiles.GetProfileByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.FullName = strings.TrimSpace(fullName)
	p.SubscriptionTier = tier
	p.SubscriptionEnd = subscriptionEnd
	if tier == model.TierPremium && p.SubscriptionStart == nil {
		now := time.Now().UTC()
		p.SubscriptionStart = &now
	}

	if err := s.profiles.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("account updated by admin", slog.String("id", id))

	return p, nil
}

// Delete removes an account and its documents.
func (s *UserAdminService) Delete(ctx context.Context, id string) error {
	if err := s.profiles.DeleteProfile(ctx, id); err != nil {
		return err
	}
	s.logger.Info("account deleted by admin", slog.String("id", id))
	return nil
}
