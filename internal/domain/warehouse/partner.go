package warehouse

import "github.com/google/uuid"

// Partner is a supplier of stock batches.
// Its batch list holds ids only; the batches themselves belong to the Warehouse.
type Partner struct {
	ID       string
	Name     string
	Address  string
	batchIDs []uuid.UUID
}

// BatchIDs returns the ids of the batches supplied by this partner, in creation order
func (p *Partner) BatchIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), p.batchIDs...)
}

// BatchCount returns the number of batches supplied by this partner
func (p *Partner) BatchCount() int {
	return len(p.batchIDs)
}

func (p *Partner) addBatch(id uuid.UUID) {
	p.batchIDs = append(p.batchIDs, id)
}
