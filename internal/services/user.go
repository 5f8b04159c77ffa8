package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/platform/apierr"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
	"github.com/aiverso/aiverso-backend/internal/utils"
)

// MeSnapshot is the authenticated user plus their gamification state.
type MeSnapshot struct {
	User           *types.User        `json:"user"`
	Profile        *types.UserProfile `json:"profile"`
	Level          int                `json:"level"`
	XPIntoLevel    int                `json:"xp_into_level"`
	XPForNextLevel int                `json:"xp_for_next_level"`
	Badges         []*types.Badge     `json:"badges"`
}

// UpdateMeRequest carries the mutable profile fields; nil means unchanged.
type UpdateMeRequest struct {
	DisplayName     *string `json:"display_name"`
	Bio             *string `json:"bio"`
	PreferredLocale *string `json:"preferred_locale"`
}

type UserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*MeSnapshot, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, req UpdateMeRequest) (*MeSnapshot, error)
}

type userService struct {
	db  *gorm.DB
	log *logger.Logger

	userRepo      repos.UserRepo
	profileRepo   repos.UserProfileRepo
	badgeRepo     repos.BadgeRepo
	userBadgeRepo repos.UserBadgeRepo
}

func NewUserService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	profileRepo repos.UserProfileRepo,
	badgeRepo repos.BadgeRepo,
	userBadgeRepo repos.UserBadgeRepo,
) UserService {
	return &userService{
		db:            db,
		log:           baseLog.With("service", "UserService"),
		userRepo:      userRepo,
		profileRepo:   profileRepo,
		badgeRepo:     badgeRepo,
		userBadgeRepo: userBadgeRepo,
	}
}

func (s *userService) GetMe(ctx context.Context, userID uuid.UUID) (*MeSnapshot, error) {
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || users[0] == nil {
		return nil, apierr.New(404, "user_not_found", fmt.Errorf("user not found"))
	}
	user := users[0]

	profiles, err := s.profileRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 || profiles[0] == nil {
		return nil, apierr.New(404, "profile_not_found", fmt.Errorf("profile not found"))
	}
	profile := profiles[0]

	owned, err := s.userBadgeRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	badgeIDs := make([]uuid.UUID, 0, len(owned))
	for _, ub := range owned {
		if ub != nil {
			badgeIDs = append(badgeIDs, ub.BadgeID)
		}
	}
	badges, err := s.badgeRepo.GetByIDs(ctx, nil, badgeIDs)
	if err != nil {
		return nil, err
	}

	level := CalculateLevel(profile.TotalXP)
	return &MeSnapshot{
		User:           user,
		Profile:        profile,
		Level:          level,
		XPIntoLevel:    profile.TotalXP - XPForLevel(level),
		XPForNextLevel: XPForLevel(level+1) - XPForLevel(level),
		Badges:         badges,
	}, nil
}

func (s *userService) UpdateMe(ctx context.Context, userID uuid.UUID, req UpdateMeRequest) (*MeSnapshot, error) {
	userUpdates := map[string]interface{}{}
	profileUpdates := map[string]interface{}{}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, apierr.New(400, "invalid_display_name", fmt.Errorf("display name cannot be empty"))
		}
		userUpdates["display_name"] = name
	}
	if req.Bio != nil {
		profileUpdates["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.PreferredLocale != nil {
		if !utils.ValidLocale(*req.PreferredLocale) {
			return nil, apierr.New(400, "invalid_locale", fmt.Errorf("locale must be en or es"))
		}
		userUpdates["preferred_locale"] = *req.PreferredLocale
		profileUpdates["locale"] = *req.PreferredLocale
	}

	if len(userUpdates) == 0 && len(profileUpdates) == 0 {
		return s.GetMe(ctx, userID)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(userUpdates) > 0 {
			if err := s.userRepo.UpdateFields(ctx, tx, userID, userUpdates); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
		}
		if len(profileUpdates) > 0 {
			if err := s.profileRepo.UpdateFields(ctx, tx, userID, profileUpdates); err != nil {
				return fmt.Errorf("update profile: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMe(ctx, userID)
}
