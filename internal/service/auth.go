package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ConsoleExt/internal/cache"
	"ConsoleExt/internal/model"
	"ConsoleExt/internal/model/dto"
	pkgerrors "ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/pkg/snowflake"
	"ConsoleExt/pkg/token"
	"ConsoleExt/storage/database"
	"ConsoleExt/utils"
)

var (
	authService *AuthService
	authOnce    sync.Once
)

func Auth() *AuthService {
	authOnce.Do(func() {
		authService = NewAuthService(database.DB())
	})
	return authService
}

// AuthService 控制台账户的注册、登录、token 刷新
type AuthService struct {
	db *gorm.DB

	// refresh token 的 Redis 读写，测试中可替换
	storeRefresh  func(ctx context.Context, userID, refreshToken string) error
	deleteRefresh func(ctx context.Context, userID string) error
	checkRefresh  func(ctx context.Context, userID, refreshToken string) bool
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{
		db:            db,
		storeRefresh:  cache.SetRefreshToken,
		deleteRefresh: cache.DeleteRefreshToken,
		checkRefresh:  cache.ValidateRefreshTokenExists,
	}
}

// Register 注册新账户，同时创建保留的默认应用
func (s *AuthService) Register(
	ctx context.Context,
	req dto.RegisterRequest,
) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, pkgerrors.InvalidRequest
	}

	if req.Phone != "" && !utils.ValidatePhone(req.Phone) {
		return nil, pkgerrors.RecipientPhoneInvalid
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, pkgerrors.EmailAlreadyRegistered
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	user := &model.User{
		PublicID:        publicID,
		Email:           email,
		PasswordHash:    string(passwordHash),
		Name:            req.Name,
		Phone:           req.Phone,
		RateLimitWindow: model.RateLimitWindowDefault,
		CallEnabled:     false,
		RetryEnabled:    true,
		RetryDelay:      model.RetryDelayDefault,
	}

	// 账户和默认应用在同一事务内创建
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if _, err := createDefaultApplication(ctx, tx, user); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("New account registered",
		zap.Int64("user_id", user.PublicID),
	)

	return s.issueTokens(ctx, user)
}

// Login 邮箱密码登录
func (s *AuthService) Login(
	ctx context.Context,
	req dto.LoginRequest,
) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.InvalidCredentials
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, pkgerrors.InvalidCredentials
	}

	return s.issueTokens(ctx, &user)
}

// RefreshToken 校验 refresh token 并签发新的 token 对
func (s *AuthService) RefreshToken(
	ctx context.Context,
	refreshToken string,
) (*dto.AuthResponse, error) {
	userIDStr, err := token.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, pkgerrors.Unauthorized
	}

	// 检验 Redis 中是否存在且匹配，登出或轮换后的旧 token 直接拒绝
	if !s.checkRefresh(ctx, userIDStr, refreshToken) {
		return nil, pkgerrors.Unauthorized
	}

	userIDInt, err := parsePublicID(userIDStr)
	if err != nil {
		return nil, pkgerrors.Unauthorized
	}

	var user model.User
	err = s.db.WithContext(ctx).Where("public_id = ?", userIDInt).First(&user).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.UserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return s.issueTokens(ctx, &user)
}

// Logout 删除 refresh token，access token 等待自然过期
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.deleteRefresh(ctx, userID); err != nil {
		logger.Logger.Warn("Failed to delete refresh token",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (*dto.AuthResponse, error) {
	userIDStr := fmt.Sprintf("%d", user.PublicID)

	accessToken, refreshToken, expiresIn, err := token.GenerateTokenPair(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// 存储 refresh token 到 Redis，失败不影响登录
	if err := s.storeRefresh(ctx, userIDStr, refreshToken); err != nil {
		logger.Logger.Warn("Failed to store refresh token in Redis",
			zap.String("user_id", userIDStr),
			zap.Error(err),
		)
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		User: dto.AuthUserSnapshot{
			ID:    userIDStr,
			Email: user.Email,
			Name:  user.Name,
		},
	}, nil
}
