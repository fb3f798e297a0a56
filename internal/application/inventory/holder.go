package inventoryapp

import (
	"sync/atomic"
	"time"

	"github.com/ggc/backend/internal/domain/warehouse"
)

// Publication describes the warehouse currently served to readers
type Publication struct {
	Warehouse *warehouse.Warehouse
	Source    string
	Digest    string
	LoadedAt  time.Time
}

// WarehouseHolder publishes fully loaded warehouses to concurrent readers.
// Readers never observe a warehouse that is still being loaded.
type WarehouseHolder struct {
	current atomic.Pointer[Publication]
}

// NewWarehouseHolder creates a holder serving an empty warehouse
func NewWarehouseHolder() *WarehouseHolder {
	h := &WarehouseHolder{}
	h.current.Store(&Publication{Warehouse: warehouse.New()})
	return h
}

// Current returns the published warehouse
func (h *WarehouseHolder) Current() *warehouse.Warehouse {
	return h.current.Load().Warehouse
}

// Publication returns the published warehouse with its provenance
func (h *WarehouseHolder) Publication() Publication {
	return *h.current.Load()
}

// Swap publishes w and returns the previously published warehouse
func (h *WarehouseHolder) Swap(w *warehouse.Warehouse, source, digest string) *warehouse.Warehouse {
	prev := h.current.Swap(&Publication{
		Warehouse: w,
		Source:    source,
		Digest:    digest,
		LoadedAt:  time.Now().UTC(),
	})
	return prev.Warehouse
}

// LoadedAt returns when the current warehouse was published; zero before the first load
func (h *WarehouseHolder) LoadedAt() time.Time {
	return h.current.Load().LoadedAt
}

// Digest returns the SHA-256 of the content behind the current warehouse
func (h *WarehouseHolder) Digest() string {
	return h.current.Load().Digest
}

// Loaded reports whether any load has been published
func (h *WarehouseHolder) Loaded() bool {
	return !h.LoadedAt().IsZero()
}
