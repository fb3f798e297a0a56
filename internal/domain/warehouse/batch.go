package warehouse

import (
	"github.com/ggc/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Batch is a stock lot of one product delivered by one partner at a given price
type Batch struct {
	shared.BaseEntity
	ProductID string
	PartnerID string
	Price     decimal.Decimal
	Stock     int
}

// TotalValue returns price times stock for this lot
func (b *Batch) TotalValue() decimal.Decimal {
	return b.Price.Mul(decimal.NewFromInt(int64(b.Stock)))
}
