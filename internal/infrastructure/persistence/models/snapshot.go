package models

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ggc/backend/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartnerModel persists one partner of a snapshot
type PartnerModel struct {
	SnapshotRow
	PartnerID string `gorm:"type:varchar(255);not null"`
	Name      string `gorm:"type:varchar(1024)"`
	Address   string `gorm:"type:varchar(1024)"`
}

// TableName returns the table name for GORM
func (PartnerModel) TableName() string {
	return "snapshot_partners"
}

// ProductModel persists one product of a snapshot. Surcharge is only set for aggregates.
type ProductModel struct {
	SnapshotRow
	ProductID string           `gorm:"type:varchar(255);not null"`
	Kind      string           `gorm:"type:varchar(20);not null"`
	Stock     int              `gorm:"not null"`
	Price     decimal.Decimal  `gorm:"type:varchar(128);not null"`
	Surcharge *decimal.Decimal `gorm:"type:varchar(128)"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "snapshot_products"
}

// ComponentModel persists one recipe line; Position is the index within the recipe
type ComponentModel struct {
	SnapshotRow
	ProductID    string `gorm:"type:varchar(255);not null;index"`
	IngredientID string `gorm:"type:varchar(255);not null"`
	Quantity     int    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ComponentModel) TableName() string {
	return "snapshot_components"
}

// BatchModel persists one batch; Position is the creation order
type BatchModel struct {
	SnapshotRow
	BatchID   uuid.UUID       `gorm:"type:varchar(36);not null"`
	ProductID string          `gorm:"type:varchar(255);not null"`
	PartnerID string          `gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `gorm:"type:varchar(128);not null"`
	Stock     int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "snapshot_batches"
}

// SnapshotRows is the flattened row set of one warehouse
type SnapshotRows struct {
	Partners   []PartnerModel
	Products   []ProductModel
	Components []ComponentModel
	Batches    []BatchModel
}

// RowsFromWarehouse flattens w into rows owned by snapshotID
func RowsFromWarehouse(snapshotID uuid.UUID, w *warehouse.Warehouse) SnapshotRows {
	var rows SnapshotRows

	for i, p := range w.Partners() {
		rows.Partners = append(rows.Partners, PartnerModel{
			SnapshotRow: SnapshotRow{SnapshotID: snapshotID, Position: i},
			PartnerID:   p.ID,
			Name:        p.Name,
			Address:     p.Address,
		})
	}

	for i, p := range w.Products() {
		m := ProductModel{
			SnapshotRow: SnapshotRow{SnapshotID: snapshotID, Position: i},
			ProductID:   p.ID,
			Kind:        string(p.Kind),
			Stock:       p.Stock,
			Price:       p.Price,
		}
		if r := p.Recipe(); r != nil {
			surcharge := r.Surcharge()
			m.Surcharge = &surcharge
			for j, c := range r.Components() {
				rows.Components = append(rows.Components, ComponentModel{
					SnapshotRow:  SnapshotRow{SnapshotID: snapshotID, Position: j},
					ProductID:    p.ID,
					IngredientID: c.Product.ID,
					Quantity:     c.Quantity,
				})
			}
		}
		rows.Products = append(rows.Products, m)
	}

	for i, b := range w.Batches() {
		rows.Batches = append(rows.Batches, BatchModel{
			SnapshotRow: SnapshotRow{SnapshotID: snapshotID, Position: i},
			BatchID:     b.ID,
			ProductID:   b.ProductID,
			PartnerID:   b.PartnerID,
			Price:       b.Price,
			Stock:       b.Stock,
		})
	}
	return rows
}

// ToWarehouse rebuilds a warehouse from the rows using only registry operations.
// Aggregates are registered once all their ingredients exist, so row order among
// products does not matter.
func (rows SnapshotRows) ToWarehouse() (*warehouse.Warehouse, error) {
	w := warehouse.New()

	for _, p := range rows.Partners {
		if _, err := w.RegisterPartner(p.PartnerID, p.Name, p.Address); err != nil {
			return nil, fmt.Errorf("restore partner %s: %w", p.PartnerID, err)
		}
	}

	recipes := make(map[string][]ComponentModel)
	for _, c := range rows.Components {
		recipes[c.ProductID] = append(recipes[c.ProductID], c)
	}

	var pending []ProductModel
	for _, p := range rows.Products {
		if warehouse.ProductKind(p.Kind) == warehouse.ProductKindAggregate {
			pending = append(pending, p)
			continue
		}
		if _, err := w.RegisterSimpleProduct(p.ProductID, p.Stock, p.Price); err != nil {
			return nil, fmt.Errorf("restore product %s: %w", p.ProductID, err)
		}
	}

	for len(pending) > 0 {
		var blocked []ProductModel
		for _, p := range pending {
			components, ready := resolveComponents(w, recipes[p.ProductID])
			if !ready {
				blocked = append(blocked, p)
				continue
			}
			surcharge := decimal.Zero
			if p.Surcharge != nil {
				surcharge = *p.Surcharge
			}
			recipe, err := warehouse.NewRecipe(surcharge, components...)
			if err != nil {
				return nil, fmt.Errorf("restore recipe of %s: %w", p.ProductID, err)
			}
			if _, err := w.RegisterAggregateProduct(p.ProductID, p.Stock, recipe, p.Price); err != nil {
				return nil, fmt.Errorf("restore product %s: %w", p.ProductID, err)
			}
		}
		if len(blocked) == len(pending) {
			return nil, fmt.Errorf("restore: %d aggregate products reference missing ingredients", len(blocked))
		}
		pending = blocked
	}

	for _, b := range rows.Batches {
		product, err := w.GetProduct(b.ProductID)
		if err != nil {
			return nil, fmt.Errorf("restore batch %s: %w", b.BatchID, err)
		}
		partner, err := w.GetPartner(b.PartnerID)
		if err != nil {
			return nil, fmt.Errorf("restore batch %s: %w", b.BatchID, err)
		}
		if _, err := w.RegisterBatch(product, partner, b.Price, b.Stock); err != nil {
			return nil, fmt.Errorf("restore batch %s: %w", b.BatchID, err)
		}
	}
	return w, nil
}

func resolveComponents(w *warehouse.Warehouse, rows []ComponentModel) ([]warehouse.Component, bool) {
	sorted := slices.SortedFunc(slices.Values(rows), func(a, b ComponentModel) int {
		return cmp.Compare(a.Position, b.Position)
	})
	components := make([]warehouse.Component, 0, len(sorted))
	for _, c := range sorted {
		ingredient, err := w.GetProduct(c.IngredientID)
		if err != nil {
			return nil, false
		}
		components = append(components, warehouse.Component{Product: ingredient, Quantity: c.Quantity})
	}
	return components, true
}
