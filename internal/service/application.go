package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ConsoleExt/internal/cache"
	"ConsoleExt/internal/model"
	"ConsoleExt/internal/model/dto"
	pkgerrors "ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/pkg/snowflake"
	"ConsoleExt/storage/database"
	"ConsoleExt/utils"
)

var (
	applicationService *ApplicationService
	applicationOnce    sync.Once
)

func Application() *ApplicationService {
	applicationOnce.Do(func() {
		applicationService = NewApplicationService(database.DB())
	})
	return applicationService
}

// ApplicationService 应用管理：应用 CRUD、接收人维护、API Key 鉴权查询
type ApplicationService struct {
	db *gorm.DB

	// cacheEnabled 为 false 时跳过 Redis，测试环境使用
	cacheEnabled bool
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{db: db, cacheEnabled: true}
}

// DisableCache 关闭 API Key 缓存，仅测试使用
func (s *ApplicationService) DisableCache() {
	s.cacheEnabled = false
}

// ownerRecipients 账户有手机号时把本人作为第一个接收人
func ownerRecipients(user *model.User) model.Recipients {
	recipients := model.Recipients{}
	if user.Phone != "" {
		recipients = append(recipients, model.Recipient{
			Name:     user.Name,
			Phone:    user.Phone,
			IsActive: true,
		})
	}
	return recipients
}

// createDefaultApplication 为新账户创建保留的默认应用
func createDefaultApplication(
	ctx context.Context,
	tx *gorm.DB,
	user *model.User,
) (*model.Application, error) {
	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate application ID: %w", err)
	}

	app := &model.Application{
		PublicID:   publicID,
		UserID:     user.ID,
		Name:       model.DefaultApplicationName,
		APIKey:     newAPIKey(),
		Recipients: ownerRecipients(user),
	}

	if err := tx.WithContext(ctx).Create(app).Error; err != nil {
		return nil, fmt.Errorf("failed to create default application: %w", err)
	}

	return app, nil
}

// CreateApplication 创建新应用，名称在账户内唯一，保留名不可使用
// 和默认应用一样，本人作为第一个接收人，保证新应用立刻可派发
func (s *ApplicationService) CreateApplication(
	ctx context.Context,
	userID string,
	req dto.CreateApplicationRequest,
) (*dto.ApplicationItem, error) {
	user, err := s.getUserByPublicID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name == "" || req.Name == model.DefaultApplicationName {
		return nil, pkgerrors.DefaultAppProtected
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&model.Application{}).
		Where("user_id = ?", user.ID).
		Where("name = ?", req.Name).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check application name: %w", err)
	}
	if count > 0 {
		return nil, pkgerrors.ApplicationNameTaken
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate application ID: %w", err)
	}

	app := &model.Application{
		PublicID:   publicID,
		UserID:     user.ID,
		Name:       req.Name,
		APIKey:     newAPIKey(),
		Recipients: ownerRecipients(user),
	}

	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	logger.Logger.Info("Application created",
		zap.Int64("user_id", user.PublicID),
		zap.Int64("application_id", app.PublicID),
		zap.String("name", app.Name),
	)

	item := toApplicationItem(app)
	return &item, nil
}

// ListApplications 列出账户的全部应用
func (s *ApplicationService) ListApplications(
	ctx context.Context,
	userID string,
) ([]dto.ApplicationItem, error) {
	user, err := s.getUserByPublicID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var apps []model.Application
	err = s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("id ASC").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}

	items := make([]dto.ApplicationItem, 0, len(apps))
	for i := range apps {
		items = append(items, toApplicationItem(&apps[i]))
	}
	return items, nil
}

// DeleteApplication 删除应用，默认应用受保护不可删除
func (s *ApplicationService) DeleteApplication(
	ctx context.Context,
	userID string,
	applicationID string,
) error {
	user, app, err := s.getOwnedApplication(ctx, userID, applicationID)
	if err != nil {
		return err
	}

	if app.IsDefault() {
		return pkgerrors.DefaultAppProtected
	}

	if err := s.db.WithContext(ctx).Delete(app).Error; err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}

	s.invalidateAPIKey(ctx, app.APIKey)
	logger.Logger.Info("Application deleted",
		zap.Int64("user_id", user.PublicID),
		zap.Int64("application_id", app.PublicID),
	)
	return nil
}

// RotateAPIKey 重新生成应用的 API Key，旧 key 立即失效
func (s *ApplicationService) RotateAPIKey(
	ctx context.Context,
	userID string,
	applicationID string,
) (*dto.ApplicationItem, error) {
	_, app, err := s.getOwnedApplication(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}

	oldKey := app.APIKey
	app.APIKey = newAPIKey()

	if err := s.db.WithContext(ctx).Model(app).Update("api_key", app.APIKey).Error; err != nil {
		return nil, fmt.Errorf("failed to rotate API key: %w", err)
	}

	s.invalidateAPIKey(ctx, oldKey)
	logger.Logger.Info("Application API key rotated",
		zap.Int64("application_id", app.PublicID),
	)

	item := toApplicationItem(app)
	return &item, nil
}

// AddRecipient 为应用追加接收人，新接收人默认激活
func (s *ApplicationService) AddRecipient(
	ctx context.Context,
	userID string,
	applicationID string,
	req dto.AddRecipientRequest,
) (*dto.ApplicationItem, error) {
	_, app, err := s.getOwnedApplication(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}

	if !utils.ValidatePhone(req.Phone) {
		return nil, pkgerrors.RecipientPhoneInvalid
	}

	app.Recipients = append(app.Recipients, model.Recipient{
		Name:     req.Name,
		Phone:    req.Phone,
		IsActive: true,
	})

	if err := s.saveRecipients(ctx, app); err != nil {
		return nil, err
	}

	item := toApplicationItem(app)
	return &item, nil
}

// UpdateRecipient 按位置更新接收人，nil 字段保持不变
// 不允许把最后一个激活接收人停用
func (s *ApplicationService) UpdateRecipient(
	ctx context.Context,
	userID string,
	applicationID string,
	index int,
	req dto.UpdateRecipientRequest,
) (*dto.ApplicationItem, error) {
	_, app, err := s.getOwnedApplication(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(app.Recipients) {
		return nil, pkgerrors.RecipientNotFound
	}

	recipient := app.Recipients[index]

	if req.Name != nil {
		recipient.Name = *req.Name
	}
	if req.Phone != nil {
		if !utils.ValidatePhone(*req.Phone) {
			return nil, pkgerrors.RecipientPhoneInvalid
		}
		recipient.Phone = *req.Phone
	}
	if req.IsActive != nil {
		if !*req.IsActive && recipient.IsActive && app.Recipients.ActiveCount() == 1 {
			return nil, pkgerrors.RecipientLastActive
		}
		recipient.IsActive = *req.IsActive
	}

	app.Recipients[index] = recipient

	if err := s.saveRecipients(ctx, app); err != nil {
		return nil, err
	}

	item := toApplicationItem(app)
	return &item, nil
}

// RemoveRecipient 按位置移除接收人，应用至少保留一个接收人
func (s *ApplicationService) RemoveRecipient(
	ctx context.Context,
	userID string,
	applicationID string,
	index int,
) (*dto.ApplicationItem, error) {
	_, app, err := s.getOwnedApplication(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(app.Recipients) {
		return nil, pkgerrors.RecipientNotFound
	}

	if len(app.Recipients) <= 1 {
		return nil, pkgerrors.RecipientLastRemaining
	}

	app.Recipients = append(app.Recipients[:index], app.Recipients[index+1:]...)

	if err := s.saveRecipients(ctx, app); err != nil {
		return nil, err
	}

	item := toApplicationItem(app)
	return &item, nil
}

// GetByAPIKey 按 API Key 查询应用，上报鉴权的热路径，先查缓存
func (s *ApplicationService) GetByAPIKey(ctx context.Context, apiKey string) (*model.Application, error) {
	if apiKey == "" {
		return nil, pkgerrors.APIKeyInvalid
	}

	if s.cacheEnabled {
		cached, err := cache.GetApplicationByAPIKey(ctx, apiKey)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	var app model.Application
	err := s.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&app).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			if s.cacheEnabled {
				// 写入空值标记，拦住无效 key 的穿透
				_ = cache.SetApplicationByAPIKey(ctx, apiKey, nil)
			}
			return nil, pkgerrors.APIKeyInvalid
		}
		return nil, fmt.Errorf("failed to query application by API key: %w", err)
	}

	if s.cacheEnabled {
		if err := cache.SetApplicationByAPIKey(ctx, apiKey, &app); err != nil {
			logger.Logger.Warn("Failed to cache application by API key", zap.Error(err))
		}
	}

	return &app, nil
}

func (s *ApplicationService) saveRecipients(ctx context.Context, app *model.Application) error {
	err := s.db.WithContext(ctx).Model(app).
		Update("recipients", app.Recipients).Error
	if err != nil {
		return fmt.Errorf("failed to update recipients: %w", err)
	}

	s.invalidateAPIKey(ctx, app.APIKey)
	return nil
}

func (s *ApplicationService) invalidateAPIKey(ctx context.Context, apiKeys ...string) {
	if !s.cacheEnabled {
		return
	}
	if err := cache.InvalidateApplication(ctx, apiKeys...); err != nil {
		logger.Logger.Warn("Failed to invalidate application cache", zap.Error(err))
	}
}

func (s *ApplicationService) getUserByPublicID(ctx context.Context, userID string) (*model.User, error) {
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

func (s *ApplicationService) getOwnedApplication(
	ctx context.Context,
	userID string,
	applicationID string,
) (*model.User, *model.Application, error) {
	user, err := s.getUserByPublicID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	applicationIDInt, err := parsePublicID(applicationID)
	if err != nil {
		return nil, nil, pkgerrors.ApplicationNotFound
	}

	var app model.Application
	err = s.db.WithContext(ctx).
		Where("public_id = ?", applicationIDInt).
		Where("user_id = ?", user.ID).
		First(&app).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.ApplicationNotFound
		}
		return nil, nil, fmt.Errorf("failed to query application: %w", err)
	}

	return user, &app, nil
}

func toApplicationItem(app *model.Application) dto.ApplicationItem {
	recipients := make([]dto.RecipientItem, 0, len(app.Recipients))
	for i, r := range app.Recipients {
		recipients = append(recipients, dto.RecipientItem{
			Index:    i,
			Name:     r.Name,
			Phone:    r.Phone,
			IsActive: r.IsActive,
		})
	}

	return dto.ApplicationItem{
		ID:         fmt.Sprintf("%d", app.PublicID),
		Name:       app.Name,
		APIKey:     app.APIKey,
		IsDefault:  app.IsDefault(),
		Recipients: recipients,
		CreatedAt:  app.CreatedAt,
	}
}

func newAPIKey() string {
	return "cek_" + uuid.NewString()
}
