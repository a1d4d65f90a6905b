// internal/service/payment/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"gomall/internal/service/payment/domain"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentModel 对应 payments 表。
type PaymentModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	OrderID       string `gorm:"column:order_id;size:64;uniqueIndex"`
	UserID        string `gorm:"column:user_id;size:64;index"`
	Amount        int64
	Method        string `gorm:"size:16"`
	Status        string `gorm:"size:16"`
	TransactionID string `gorm:"column:transaction_id;size:64"`
	Gateway       string `gorm:"size:32"`
	FailureReason string `gorm:"size:255"`
	CreatedAt     time.Time
	PaidAt        *time.Time
	UpdatedAt     time.Time
}

func (PaymentModel) TableName() string { return "payments" }

// GormPaymentRepository 是 PaymentRepository 的 MySQL 实现。
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// AutoMigrate 建表。
func (r *GormPaymentRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&PaymentModel{})
}

func (r *GormPaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	model := toModel(payment)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error
	return pkgerrors.Wrap(err, "save payment")
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "query payment")
	}
	return toDomain(&model), nil
}

func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "query payment by order")
	}
	return toDomain(&model), nil
}

func toModel(p *domain.Payment) *PaymentModel {
	model := &PaymentModel{
		ID:            p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		Gateway:       p.Gateway,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if !p.PaidAt.IsZero() {
		paidAt := p.PaidAt
		model.PaidAt = &paidAt
	}
	return model
}

func toDomain(m *PaymentModel) *domain.Payment {
	p := &domain.Payment{
		ID:            m.ID,
		OrderID:       m.OrderID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		Method:        domain.Method(m.Method),
		Status:        domain.Status(m.Status),
		TransactionID: m.TransactionID,
		Gateway:       m.Gateway,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.PaidAt != nil {
		p.PaidAt = *m.PaidAt
	}
	return p
}
