package repository

import (
	"fmt"
	"os"

	"gorm.io/gen"

	"ConsoleExt/internal/model"
	"ConsoleExt/storage/database"
)

// ========== User 相关查询接口 ==========

// UserQuerier 用户查询接口
type UserQuerier interface {
	// GetByEmail 根据邮箱查询用户（登录时使用）
	//
	// SELECT * FROM @@table WHERE email = @email LIMIT 1
	GetByEmail(email string) (*gen.T, error)

	// GetByPublicID 根据 PublicID 查询用户（最常用，API 中 userID 是 public_id）
	//
	// SELECT * FROM @@table WHERE public_id = @publicID LIMIT 1
	GetByPublicID(publicID int64) (*gen.T, error)

	// GetByID 根据数据库主键 ID 查询用户
	//
	// SELECT * FROM @@table WHERE id = @id LIMIT 1
	GetByID(id int64) (*gen.T, error)
}

// ========== Application 相关查询接口 ==========

// ApplicationQuerier 应用查询接口
type ApplicationQuerier interface {
	// GetByAPIKey 根据 API Key 查询应用（上报鉴权热路径）
	//
	// SELECT * FROM @@table WHERE api_key = @apiKey LIMIT 1
	GetByAPIKey(apiKey string) (*gen.T, error)

	// ListByUserID 按账户查询应用列表
	//
	// SELECT * FROM @@table
	// WHERE user_id = @userID
	// ORDER BY id ASC
	ListByUserID(userID int64) ([]*gen.T, error)

	// CountByUserIDAndName 统计账户下同名应用数量（名称唯一性检查）
	//
	// SELECT COUNT(*) as count
	// FROM @@table
	// WHERE user_id = @userID AND name = @name
	CountByUserIDAndName(userID int64, name string) (int64, error)
}

// ========== Notification 相关查询接口 ==========

// NotificationQuerier 通知查询接口
type NotificationQuerier interface {
	// GetByID 根据数据库主键 ID 查询通知（派发消费侧使用）
	//
	// SELECT * FROM @@table WHERE id = @id LIMIT 1
	GetByID(id int64) (*gen.T, error)

	// GetByPublicIDAndUserID 根据 PublicID 查询账户自己的通知（API 常用）
	//
	// SELECT * FROM @@table
	// WHERE public_id = @publicID AND user_id = @userID
	// LIMIT 1
	GetByPublicIDAndUserID(publicID int64, userID int64) (*gen.T, error)

	// CountDuplicates 统计限流窗口内同指纹的已发送通知（去重判定）
	//
	// SELECT COUNT(*) as count
	// FROM @@table
	// WHERE hash = @hash
	//   AND application_id = @applicationID
	//   AND status = 'sent'
	//   AND created_at >= @since::timestamptz
	//   AND id <> @excludeID
	CountDuplicates(hash string, applicationID int64, since string, excludeID int64) (int64, error)

	// ListByUserID 按账户查询通知（游标分页）
	//
	// SELECT * FROM @@table
	// WHERE user_id = @userID
	//   {{if status != ""}}
	//   AND status = @status
	//   {{end}}
	//   {{if cursorID > 0}}
	//   AND id < @cursorID
	//   {{end}}
	// ORDER BY id DESC
	// LIMIT @limit
	ListByUserID(userID int64, status string, cursorID int64, limit int) ([]*gen.T, error)

	// ListStalePending 查询长时间停留在 pending 的通知（补偿扫描）
	//
	// SELECT * FROM @@table
	// WHERE status = 'pending'
	//   AND created_at < @deadline::timestamptz
	// ORDER BY id ASC
	// LIMIT @limit
	ListStalePending(deadline string, limit int) ([]*gen.T, error)
}

// ========== DeliveryAttempt 相关查询接口 ==========

// DeliveryAttemptQuerier 投递尝试记录查询接口
type DeliveryAttemptQuerier interface {
	// ListByNotificationID 查询通知的全部投递尝试
	//
	// SELECT * FROM @@table
	// WHERE notification_id = @notificationID
	// ORDER BY id ASC
	ListByNotificationID(notificationID int64) ([]*gen.T, error)

	// GetLatestByNotificationID 获取通知最新的投递尝试
	//
	// SELECT * FROM @@table
	// WHERE notification_id = @notificationID
	// ORDER BY id DESC
	// LIMIT 1
	GetLatestByNotificationID(notificationID int64) (*gen.T, error)

	// CountByNotificationID 统计通知的投递尝试次数
	//
	// SELECT COUNT(*) as count
	// FROM @@table
	// WHERE notification_id = @notificationID
	CountByNotificationID(notificationID int64) (int64, error)
}

func Generate() error {
	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 运行数据库迁移（确保表存在）
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migration: %w", err)
	}

	db := database.DB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./internal/repository/query", // 生成代码的输出路径
		ModelPkgPath:      "ConsoleExt/internal/model",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface | gen.WithoutContext,
		FieldNullable:     true, // 字段可以为 null
		FieldCoverable:    false,
		FieldSignable:     false,
		FieldWithIndexTag: false,
		FieldWithTypeTag:  true,
	})

	g.UseDB(db)

	// 注册现有的 model，GORM Gen 会使用这些 model 而不是生成新的
	g.ApplyBasic(
		&model.User{},
		&model.Application{},
		&model.Notification{},
		&model.DeliveryAttempt{},
	)

	// 直接应用接口，GORM Gen 会根据接口中的类型自动匹配已注册的 model
	g.ApplyInterface(func(UserQuerier) {}, &model.User{})
	g.ApplyInterface(func(ApplicationQuerier) {}, &model.Application{})
	g.ApplyInterface(func(NotificationQuerier) {}, &model.Notification{})
	g.ApplyInterface(func(DeliveryAttemptQuerier) {}, &model.DeliveryAttempt{})

	g.Execute()

	return nil
}

func RunGenerate() {
	if err := Generate(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate code: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Code generation completed successfully!")
}
