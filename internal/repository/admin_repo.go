package repository

import (
	"time"

	"hubadmin/internal/models"

	"gorm.io/gorm"
)

// PaymentStats summarises the console's own payment history for the reports page.
type PaymentStats struct {
	TotalAttempts   int64 `json:"total_attempts"`
	Succeeded       int64 `json:"succeeded"`
	Failed          int64 `json:"failed"`
	InFlight        int64 `json:"in_flight"`
	CollectedAmount int64 `json:"collected_amount"`
}

type TimeSeriesPoint struct {
	Date   string `json:"date"`
	Count  int64  `json:"count"`
	Amount int64  `json:"amount"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetPaymentStats() (*PaymentStats, error) {
	var s PaymentStats
	m := func() *gorm.DB { return r.db.Model(&models.PaymentAttempt{}) }
	if err := m().Count(&s.TotalAttempts).Error; err != nil {
		return nil, err
	}
	m().Where("state = ?", "success").Count(&s.Succeeded)
	m().Where("state = ?", "failed").Count(&s.Failed)
	m().Where("state IN ?", []string{"initiating", "pending"}).Count(&s.InFlight)

	var sum struct{ Total int64 }
	m().Select("COALESCE(SUM(amount), 0) as total").Where("state = ?", "success").Scan(&sum)
	s.CollectedAmount = sum.Total
	return &s, nil
}

// SuccessfulPaymentsByDay buckets successful attempts of the last days by
// resolution date, oldest first.
func (r *AdminRepository) SuccessfulPaymentsByDay(days int) ([]TimeSeriesPoint, error) {
	since := time.Now().AddDate(0, 0, -days)
	var rows []models.PaymentAttempt
	err := r.db.Select("amount", "resolved_at").
		Where("state = ? AND resolved_at >= ?", "success", since).
		Order("resolved_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	var out []TimeSeriesPoint
	for _, a := range rows {
		if a.ResolvedAt == nil {
			continue
		}
		day := a.ResolvedAt.Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Date == day {
			out[n-1].Count++
			out[n-1].Amount += a.Amount
			continue
		}
		out = append(out, TimeSeriesPoint{Date: day, Count: 1, Amount: a.Amount})
	}
	return out, nil
}
