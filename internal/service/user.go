package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ConsoleExt/internal/model"
	"ConsoleExt/internal/model/dto"
	pkgerrors "ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/storage/database"
	"ConsoleExt/utils"
)

var (
	userService *UserService
	userOnce    sync.Once
)

func User() *UserService {
	userOnce.Do(func() {
		userService = NewUserService(database.DB())
	})
	return userService
}

// UserService 账户资料与通知设置
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetProfile 查询账户资料及当前通知设置
func (s *UserService) GetProfile(ctx context.Context, userID string) (*dto.UserProfileData, error) {
	user, err := s.getByPublicID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return toProfileData(user), nil
}

// UpdateSettings 更新账户资料与通知设置，nil 字段保持不变
// 数值设置越界时整体拒绝，不做截断
func (s *UserService) UpdateSettings(
	ctx context.Context,
	userID string,
	req dto.UpdateUserSettingsRequest,
) (*dto.UserProfileData, error) {
	user, err := s.getByPublicID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if req.Name != nil {
		updates["name"] = *req.Name
		user.Name = *req.Name
	}
	if req.Phone != nil {
		if *req.Phone != "" && !utils.ValidatePhone(*req.Phone) {
			return nil, pkgerrors.RecipientPhoneInvalid
		}
		updates["phone"] = *req.Phone
		user.Phone = *req.Phone
	}
	if req.RateLimitWindow != nil {
		if *req.RateLimitWindow < model.RateLimitWindowMin || *req.RateLimitWindow > model.RateLimitWindowMax {
			return nil, pkgerrors.SettingsOutOfRange
		}
		updates["rate_limit_window"] = *req.RateLimitWindow
		user.RateLimitWindow = *req.RateLimitWindow
	}
	if req.CallEnabled != nil {
		updates["call_enabled"] = *req.CallEnabled
		user.CallEnabled = *req.CallEnabled
	}
	if req.RetryEnabled != nil {
		updates["retry_enabled"] = *req.RetryEnabled
		user.RetryEnabled = *req.RetryEnabled
	}
	if req.RetryDelay != nil {
		if *req.RetryDelay < model.RetryDelayMin || *req.RetryDelay > model.RetryDelayMax {
			return nil, pkgerrors.SettingsOutOfRange
		}
		updates["retry_delay"] = *req.RetryDelay
		user.RetryDelay = *req.RetryDelay
	}

	if len(updates) == 0 {
		return toProfileData(user), nil
	}

	err = s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update user settings: %w", err)
	}

	logger.Logger.Info("User settings updated",
		zap.Int64("user_id", user.PublicID),
		zap.Int("changed_fields", len(updates)),
	)

	return toProfileData(user), nil
}

func (s *UserService) getByPublicID(ctx context.Context, userID string) (*model.User, error) {
	userIDInt, err := parsePublicID(userID)
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := s.db.WithContext(ctx).Where("public_id = ?", userIDInt).First(&user).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.UserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func toProfileData(user *model.User) *dto.UserProfileData {
	return &dto.UserProfileData{
		ID:    fmt.Sprintf("%d", user.PublicID),
		Email: user.Email,
		Name:  user.Name,
		Phone: user.Phone,
		Settings: dto.NotificationSettingsDTO{
			RateLimitWindow: user.RateLimitWindow,
			CallEnabled:     user.CallEnabled,
			RetryEnabled:    user.RetryEnabled,
			RetryDelay:      user.RetryDelay,
		},
	}
}
