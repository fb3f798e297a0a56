// Package warehouse holds the inventory entity graph and the registry that owns it.
//
// The Warehouse is the only place where partners, products and batches are created
// or linked. Products and partners keep batch ids only; batches are resolved through
// the Warehouse.
package warehouse

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Warehouse owns every partner, product, recipe and batch of one loaded inventory.
// A single RWMutex guards the whole registry.
type Warehouse struct {
	mu         sync.RWMutex
	partners   map[string]*Partner
	products   map[string]*Product
	batches    map[uuid.UUID]*Batch
	batchOrder []uuid.UUID
}

// Stats summarises the registry contents
type Stats struct {
	Partners          int `json:"partners"`
	SimpleProducts    int `json:"simple_products"`
	AggregateProducts int `json:"aggregate_products"`
	Batches           int `json:"batches"`
}

// Products returns the total number of products of both kinds
func (s Stats) Products() int {
	return s.SimpleProducts + s.AggregateProducts
}

// New creates an empty warehouse
func New() *Warehouse {
	return &Warehouse{
		partners: make(map[string]*Partner),
		products: make(map[string]*Product),
		batches:  make(map[uuid.UUID]*Batch),
	}
}

// RegisterPartner registers a new partner
func (w *Warehouse) RegisterPartner(id, name, address string) (*Partner, error) {
	if err := validateStruct(partnerInput{ID: id}); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.partners[id]; exists {
		return nil, duplicateError("partner", id)
	}

	partner := &Partner{ID: id, Name: name, Address: address}
	w.partners[id] = partner
	return partner, nil
}

// RegisterSimpleProduct registers a new product without a recipe
func (w *Warehouse) RegisterSimpleProduct(id string, initialStock int, price decimal.Decimal) (*Product, error) {
	if err := validateStruct(productInput{ID: id, Stock: initialStock, Price: price}); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.products[id]; exists {
		return nil, duplicateError("product", id)
	}

	product := &Product{
		ID:    id,
		Kind:  ProductKindSimple,
		Stock: initialStock,
		Price: price,
	}
	w.products[id] = product
	return product, nil
}

// RegisterAggregateProduct registers a new product built from recipe.
// Every component must be a product owned by this warehouse and the recipe
// must not lead back to id.
func (w *Warehouse) RegisterAggregateProduct(id string, initialStock int, recipe *Recipe, price decimal.Decimal) (*Product, error) {
	if err := validateStruct(productInput{ID: id, Stock: initialStock, Price: price}); err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("aggregate product '%s' requires a recipe", id))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.products[id]; exists {
		return nil, duplicateError("product", id)
	}
	if recipe.reaches(id, make(map[string]bool)) {
		return nil, shared.NewDomainError(shared.CodeRecipeCycle,
			fmt.Sprintf("product '%s' cannot be a component of itself", id))
	}
	for _, c := range recipe.components {
		if owned, ok := w.products[c.Product.ID]; !ok || owned != c.Product {
			return nil, shared.NewDomainError(shared.CodeUnknownComponent,
				fmt.Sprintf("component '%s' of product '%s' is not registered", c.Product.ID, id))
		}
	}

	product := &Product{
		ID:     id,
		Kind:   ProductKindAggregate,
		Stock:  initialStock,
		Price:  price,
		recipe: recipe,
	}
	w.products[id] = product
	return product, nil
}

// RegisterBatch creates a batch and links it to both its product and its partner
func (w *Warehouse) RegisterBatch(product *Product, partner *Partner, price decimal.Decimal, stock int) (*Batch, error) {
	if product == nil || partner == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "batch requires a product and a partner")
	}
	if err := validateStruct(batchInput{Stock: stock, Price: price}); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if owned, ok := w.products[product.ID]; !ok || owned != product {
		return nil, notFoundError("product", product.ID)
	}
	if owned, ok := w.partners[partner.ID]; !ok || owned != partner {
		return nil, notFoundError("partner", partner.ID)
	}

	batch := &Batch{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  product.ID,
		PartnerID:  partner.ID,
		Price:      price,
		Stock:      stock,
	}
	w.batches[batch.ID] = batch
	w.batchOrder = append(w.batchOrder, batch.ID)
	product.addBatch(batch.ID)
	partner.addBatch(batch.ID)
	return batch, nil
}

// GetPartner returns the partner registered under id
func (w *Warehouse) GetPartner(id string) (*Partner, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	partner, ok := w.partners[id]
	if !ok {
		return nil, notFoundError("partner", id)
	}
	return partner, nil
}

// GetProduct returns the product registered under id
func (w *Warehouse) GetProduct(id string) (*Product, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	product, ok := w.products[id]
	if !ok {
		return nil, notFoundError("product", id)
	}
	return product, nil
}

// GetBatch returns the batch with the given id
func (w *Warehouse) GetBatch(id uuid.UUID) (*Batch, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	batch, ok := w.batches[id]
	if !ok {
		return nil, notFoundError("batch", id.String())
	}
	return batch, nil
}

// HasProduct reports whether id is a registered product
func (w *Warehouse) HasProduct(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.products[id]
	return ok
}

// Partners returns all partners sorted by id
func (w *Warehouse) Partners() []*Partner {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*Partner, 0, len(w.partners))
	for _, p := range w.partners {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Partner) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Products returns all products sorted by id
func (w *Warehouse) Products() []*Product {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*Product, 0, len(w.products))
	for _, p := range w.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Product) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Batches returns all batches in creation order
func (w *Warehouse) Batches() []*Batch {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.resolveBatches(w.batchOrder)
}

// PartnerBatches returns the batches supplied by partner id, in creation order
func (w *Warehouse) PartnerBatches(id string) ([]*Batch, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	partner, ok := w.partners[id]
	if !ok {
		return nil, notFoundError("partner", id)
	}
	return w.resolveBatches(partner.batchIDs), nil
}

// ProductBatches returns the batches holding product id, in creation order
func (w *Warehouse) ProductBatches(id string) ([]*Batch, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	product, ok := w.products[id]
	if !ok {
		return nil, notFoundError("product", id)
	}
	return w.resolveBatches(product.batchIDs), nil
}

// MaxBatchPrice returns the highest price among the product's batches.
// The boolean is false when the product has no batches.
func (w *Warehouse) MaxBatchPrice(id string) (decimal.Decimal, bool, error) {
	batches, err := w.ProductBatches(id)
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(batches) == 0 {
		return decimal.Zero, false, nil
	}
	maxPrice := batches[0].Price
	for _, b := range batches[1:] {
		if b.Price.GreaterThan(maxPrice) {
			maxPrice = b.Price
		}
	}
	return maxPrice, true, nil
}

// DerivedCost returns the cost of one unit of the product.
// Simple products cost their reference price; aggregate products cost
// (1 + surcharge) * sum(quantity * ingredient cost), ingredients costed recursively.
func (w *Warehouse) DerivedCost(id string) (decimal.Decimal, error) {
	product, err := w.GetProduct(id)
	if err != nil {
		return decimal.Zero, err
	}
	return derivedCost(product), nil
}

func derivedCost(p *Product) decimal.Decimal {
	if p.recipe == nil {
		return p.Price
	}
	sum := decimal.Zero
	for _, c := range p.recipe.components {
		sum = sum.Add(derivedCost(c.Product).Mul(decimal.NewFromInt(int64(c.Quantity))))
	}
	return sum.Mul(decimal.NewFromInt(1).Add(p.recipe.surcharge))
}

// Stats returns registry counts
func (w *Warehouse) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := Stats{
		Partners: len(w.partners),
		Batches:  len(w.batches),
	}
	for _, p := range w.products {
		if p.IsAggregate() {
			stats.AggregateProducts++
		} else {
			stats.SimpleProducts++
		}
	}
	return stats
}

// resolveBatches maps ids to batches; callers hold the read lock
func (w *Warehouse) resolveBatches(ids []uuid.UUID) []*Batch {
	out := make([]*Batch, 0, len(ids))
	for _, id := range ids {
		if b, ok := w.batches[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

func duplicateError(kind, id string) error {
	return shared.NewDomainError(shared.CodeDuplicateID, fmt.Sprintf("%s '%s' is already registered", kind, id))
}

func notFoundError(kind, id string) error {
	return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("%s '%s' not found", kind, id))
}
