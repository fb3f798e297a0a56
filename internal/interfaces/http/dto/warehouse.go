package dto

import (
	"time"

	"github.com/ggc/backend/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartnerResponse is a partner with its batch count
type PartnerResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	BatchCount int    `json:"batch_count"`
}

// PartnerDetailResponse is a partner with its batches
type PartnerDetailResponse struct {
	PartnerResponse
	Batches []BatchResponse `json:"batches"`
}

// ProductResponse is a product summary
type ProductResponse struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Stock      int             `json:"stock"`
	Price      decimal.Decimal `json:"price"`
	BatchCount int             `json:"batch_count"`
}

// ComponentResponse is one recipe line
type ComponentResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// RecipeResponse is a bill of materials
type RecipeResponse struct {
	Surcharge  decimal.Decimal     `json:"surcharge"`
	Components []ComponentResponse `json:"components"`
	Text       string              `json:"text"`
}

// ProductDetailResponse adds batches, recipe and costing to a product
type ProductDetailResponse struct {
	ProductResponse
	Recipe        *RecipeResponse  `json:"recipe,omitempty"`
	DerivedCost   decimal.Decimal  `json:"derived_cost"`
	MaxBatchPrice *decimal.Decimal `json:"max_batch_price,omitempty"`
	Batches       []BatchResponse  `json:"batches"`
}

// BatchResponse is a stock lot
type BatchResponse struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  string          `json:"product_id"`
	PartnerID  string          `json:"partner_id"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	TotalValue decimal.Decimal `json:"total_value"`
	CreatedAt  time.Time       `json:"created_at"`
}

// StatsResponse describes the published warehouse
type StatsResponse struct {
	warehouse.Stats
	Products int        `json:"products"`
	Source   string     `json:"source,omitempty"`
	Digest   string     `json:"digest,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// ListBatchesRequest filters the batch listing
type ListBatchesRequest struct {
	ListRequest
	Partner string `form:"partner"`
	Product string `form:"product"`
}

// ListProductsRequest filters the product listing
type ListProductsRequest struct {
	ListRequest
	Kind string `form:"kind" binding:"omitempty,oneof=simple aggregate"`
}

// ToPartnerResponse converts a partner
func ToPartnerResponse(p *warehouse.Partner) PartnerResponse {
	return PartnerResponse{
		ID:         p.ID,
		Name:       p.Name,
		Address:    p.Address,
		BatchCount: p.BatchCount(),
	}
}

// ToProductResponse converts a product
func ToProductResponse(p *warehouse.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		Kind:       string(p.Kind),
		Stock:      p.Stock,
		Price:      p.Price,
		BatchCount: p.BatchCount(),
	}
}

// ToRecipeResponse converts a recipe; nil stays nil
func ToRecipeResponse(r *warehouse.Recipe) *RecipeResponse {
	if r == nil {
		return nil
	}
	components := r.Components()
	resp := &RecipeResponse{
		Surcharge:  r.Surcharge(),
		Components: make([]ComponentResponse, len(components)),
		Text:       r.String(),
	}
	for i, c := range components {
		resp.Components[i] = ComponentResponse{ProductID: c.Product.ID, Quantity: c.Quantity}
	}
	return resp
}

// ToBatchResponse converts a batch
func ToBatchResponse(b *warehouse.Batch) BatchResponse {
	return BatchResponse{
		ID:         b.GetID(),
		ProductID:  b.ProductID,
		PartnerID:  b.PartnerID,
		Price:      b.Price,
		Stock:      b.Stock,
		TotalValue: b.TotalValue(),
		CreatedAt:  b.GetCreatedAt(),
	}
}

// ToBatchResponses converts a batch list
func ToBatchResponses(batches []*warehouse.Batch) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i, b := range batches {
		out[i] = ToBatchResponse(b)
	}
	return out
}
