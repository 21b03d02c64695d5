package repository

import (
	"time"

	"hubadmin/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReasonInterrupted marks attempts a previous server process left unresolved.
const ReasonInterrupted = "interrupted"

type PaymentAttemptFilter struct {
	State      string
	BookingRef string
	OperatorID int64
	// Search matches phone or checkout id.
	Search string
}

type PaymentAttemptRepository struct {
	db *gorm.DB
}

func NewPaymentAttemptRepository(db *gorm.DB) *PaymentAttemptRepository {
	return &PaymentAttemptRepository{db: db}
}

// Upsert inserts the attempt or overwrites the mutable columns of an
// existing row with the same attempt_id.
func (r *PaymentAttemptRepository) Upsert(a *models.PaymentAttempt) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"checkout_id", "phone", "amount", "state", "retry_count", "poll_errors",
			"last_poll_error", "failure_reason", "resolved_at", "updated_at",
		}),
	}).Create(a).Error
}

func (r *PaymentAttemptRepository) GetByAttemptID(attemptID string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	err := r.db.Where("attempt_id = ?", attemptID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns attempts newest first with filters and pagination.
func (r *PaymentAttemptRepository) List(f PaymentAttemptFilter, page, limit int) ([]models.PaymentAttempt, int64, error) {
	q := r.db.Model(&models.PaymentAttempt{})
	if f.State != "" {
		q = q.Where("state = ?", f.State)
	}
	if f.BookingRef != "" {
		q = q.Where("booking_ref = ?", f.BookingRef)
	}
	if f.OperatorID != 0 {
		q = q.Where("operator_id = ?", f.OperatorID)
	}
	if f.Search != "" {
		q = q.Where("phone LIKE ? OR checkout_id LIKE ?", "%"+f.Search+"%", "%"+f.Search+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.PaymentAttempt
	err := q.Order("started_at DESC").Order("id DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

// MarkInterrupted fails every attempt still initiating or pending. Polling
// lives in memory, so these can never resolve after a restart.
func (r *PaymentAttemptRepository) MarkInterrupted() (int64, error) {
	now := time.Now()
	res := r.db.Model(&models.PaymentAttempt{}).
		Where("state IN ?", []string{"initiating", "pending"}).
		Updates(map[string]interface{}{
			"state":          "failed",
			"failure_reason": ReasonInterrupted,
			"resolved_at":    now,
		})
	return res.RowsAffected, res.Error
}
