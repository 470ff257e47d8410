package repository

import (
	"github.com/railzwaylabs/payments/internal/payment/domain"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) (domain.PaymentRepository, domain.PaymentMethodRepository) {
	return NewPaymentRepository(db), NewPaymentMethodRepository(db)
}
