package repository

import (
	"hubadmin/internal/models"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(log *models.AuditLog) error {
	return r.db.Create(log).Error
}

// List returns audit entries newest first. search matches the actor email,
// the action, the IP or the resource id.
func (r *AuditLogRepository) List(action, search string, page, limit int) ([]models.AuditLog, int64, error) {
	q := r.db.Model(&models.AuditLog{})
	if action != "" {
		q = q.Where("action = ?", action)
	}
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("email LIKE ? OR action LIKE ? OR ip LIKE ? OR resource_id LIKE ?", like, like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.AuditLog
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}
