// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"gomall/internal/service/order/domain"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderModel 对应 orders 表。
type OrderModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	OrderNumber    string `gorm:"size:64;uniqueIndex"`
	UserID         string `gorm:"column:user_id;size:64;index"`
	ProductAmount  int64
	DiscountAmount int64
	ShippingAmount int64
	TaxAmount      int64
	TotalAmount    int64
	Country        string `gorm:"size:64"`
	Province       string `gorm:"size:64"`
	City           string `gorm:"size:64"`
	District       string `gorm:"size:64"`
	Street         string `gorm:"size:255"`
	PostalCode     string `gorm:"size:16"`
	ContactName    string `gorm:"size:64"`
	ContactPhone   string `gorm:"size:32"`
	Remark         string `gorm:"size:255"`
	CouponID       string `gorm:"column:coupon_id;size:64"`
	Status         string `gorm:"size:16"`
	CancelReason   string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel 对应 order_items 表。
type OrderItemModel struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	OrderID       string `gorm:"column:order_id;size:64;index"`
	SkuID         string `gorm:"column:sku_id;size:64"`
	Quantity      int64
	UnitPrice     int64
	OriginalPrice int64
}

func (OrderItemModel) TableName() string { return "order_items" }

// GormOrderRepository 是 OrderRepository 的 MySQL 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// AutoMigrate 建表。
func (r *GormOrderRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderItemModel{})
}

func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := toOrderModel(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(model).Error; err != nil {
			return pkgerrors.Wrap(err, "save order")
		}

		// 订单行在创建后不会变化，只在首次保存时写入
		var count int64
		if err := tx.Model(&OrderItemModel{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
			return pkgerrors.Wrap(err, "count order items")
		}
		if count == 0 {
			for _, item := range order.Items {
				itemModel := OrderItemModel{
					OrderID:       order.ID,
					SkuID:         item.SkuID,
					Quantity:      item.Quantity,
					UnitPrice:     item.UnitPrice,
					OriginalPrice: item.OriginalPrice,
				}
				if err := tx.Create(&itemModel).Error; err != nil {
					return pkgerrors.Wrap(err, "save order item")
				}
			}
		}
		return nil
	})
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "query order")
	}

	var itemModels []OrderItemModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Find(&itemModels).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "query order items")
	}

	return toDomainOrder(&model, itemModels), nil
}

func toOrderModel(order *domain.Order) *OrderModel {
	return &OrderModel{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		ProductAmount:  order.Amounts.Product,
		DiscountAmount: order.Amounts.Discount,
		ShippingAmount: order.Amounts.Shipping,
		TaxAmount:      order.Amounts.Tax,
		TotalAmount:    order.Amounts.Total,
		Country:        order.Address.Country,
		Province:       order.Address.Province,
		City:           order.Address.City,
		District:       order.Address.District,
		Street:         order.Address.Street,
		PostalCode:     order.Address.PostalCode,
		ContactName:    order.Address.ContactName,
		ContactPhone:   order.Address.ContactPhone,
		Remark:         order.Remark,
		CouponID:       order.CouponID,
		Status:         string(order.Status),
		CancelReason:   order.CancelReason,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

func toDomainOrder(model *OrderModel, itemModels []OrderItemModel) *domain.Order {
	items := make([]domain.Item, 0, len(itemModels))
	for _, m := range itemModels {
		items = append(items, domain.Item{
			SkuID:         m.SkuID,
			Quantity:      m.Quantity,
			UnitPrice:     m.UnitPrice,
			OriginalPrice: m.OriginalPrice,
		})
	}
	return &domain.Order{
		ID:          model.ID,
		OrderNumber: model.OrderNumber,
		UserID:      model.UserID,
		Items:       items,
		Amounts: domain.Amounts{
			Product:  model.ProductAmount,
			Discount: model.DiscountAmount,
			Shipping: model.ShippingAmount,
			Tax:      model.TaxAmount,
			Total:    model.TotalAmount,
		},
		Address: domain.Address{
			Country:      model.Country,
			Province:     model.Province,
			City:         model.City,
			District:     model.District,
			Street:       model.Street,
			PostalCode:   model.PostalCode,
			ContactName:  model.ContactName,
			ContactPhone: model.ContactPhone,
		},
		Remark:       model.Remark,
		CouponID:     model.CouponID,
		Status:       domain.Status(model.Status),
		CancelReason: model.CancelReason,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}
