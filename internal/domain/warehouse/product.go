package warehouse

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductKind discriminates simple products from aggregate (recipe) products
type ProductKind string

const (
	ProductKindSimple    ProductKind = "simple"
	ProductKindAggregate ProductKind = "aggregate"
)

// IsValid checks if the product kind is valid
func (k ProductKind) IsValid() bool {
	switch k {
	case ProductKindSimple, ProductKindAggregate:
		return true
	}
	return false
}

// Product is a good held in the warehouse.
// Aggregate products always carry a recipe; simple products never do.
type Product struct {
	ID       string
	Kind     ProductKind
	Stock    int
	Price    decimal.Decimal // price of the batch that introduced the product
	recipe   *Recipe
	batchIDs []uuid.UUID
}

// Recipe returns the bill of materials, or nil for simple products
func (p *Product) Recipe() *Recipe {
	return p.recipe
}

// IsAggregate returns true if the product is built from a recipe
func (p *Product) IsAggregate() bool {
	return p.Kind == ProductKindAggregate
}

// BatchIDs returns the ids of the batches holding this product, in creation order
func (p *Product) BatchIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), p.batchIDs...)
}

// BatchCount returns the number of batches holding this product
func (p *Product) BatchCount() int {
	return len(p.batchIDs)
}

func (p *Product) addBatch(id uuid.UUID) {
	p.batchIDs = append(p.batchIDs, id)
}
