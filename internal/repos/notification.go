package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

type NotificationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, notifications []*types.Notification) ([]*types.Notification, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Notification, error)
	GetByMessageID(ctx context.Context, tx *gorm.DB, messageID string) (*types.Notification, error)
	ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, limit, offset int) ([]*types.Notification, int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	MarkRead(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	repoLog := baseLog.With("repo", "NotificationRepo")
	return &notificationRepo{db: db, log: repoLog}
}

func (r *notificationRepo) Create(ctx context.Context, tx *gorm.DB, notifications []*types.Notification) ([]*types.Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(notifications) == 0 {
		return []*types.Notification{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n types.Notification
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) GetByMessageID(ctx context.Context, tx *gorm.DB, messageID string) (*types.Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n types.Notification
	if err := transaction.WithContext(ctx).
		Where("message_id = ?", messageID).
		First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, limit, offset int) ([]*types.Notification, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Model(&types.Notification{}).
		Where("recipient_id = ?", recipientID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var results []*types.Notification
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *notificationRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Notification{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *notificationRepo) MarkRead(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", now).Error
}
