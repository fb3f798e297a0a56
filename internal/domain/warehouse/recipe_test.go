package warehouse

import (
	"testing"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecipe(t *testing.T) {
	a := &Product{ID: "A", Kind: ProductKindSimple}
	b := &Product{ID: "B", Kind: ProductKindSimple}

	t.Run("keeps declaration order", func(t *testing.T) {
		r, err := NewRecipe(decimal.RequireFromString("0.2"),
			Component{Product: b, Quantity: 3},
			Component{Product: a, Quantity: 1},
		)
		require.NoError(t, err)
		assert.Equal(t, "B:3#A:1", r.String())
		assert.True(t, r.Surcharge().Equal(decimal.RequireFromString("0.2")))
		assert.True(t, r.Contains("A"))
		assert.False(t, r.Contains("C"))
	})

	t.Run("components are copied", func(t *testing.T) {
		comps := []Component{{Product: a, Quantity: 1}}
		r, err := NewRecipe(decimal.Zero, comps...)
		require.NoError(t, err)
		comps[0].Quantity = 99

		got := r.Components()
		got[0].Quantity = 42
		assert.Equal(t, 1, r.Components()[0].Quantity)
	})

	tests := []struct {
		name       string
		surcharge  string
		components []Component
		wantErr    *shared.DomainError
	}{
		{
			name:       "negative surcharge",
			surcharge:  "-0.1",
			components: []Component{{Product: a, Quantity: 1}},
			wantErr:    shared.ErrInvalidInput,
		},
		{
			name:      "no components",
			surcharge: "0",
			wantErr:   shared.ErrInvalidInput,
		},
		{
			name:       "zero quantity",
			surcharge:  "0",
			components: []Component{{Product: a, Quantity: 0}},
			wantErr:    shared.ErrInvalidInput,
		},
		{
			name:       "nil product",
			surcharge:  "0",
			components: []Component{{Quantity: 1}},
			wantErr:    shared.ErrInvalidInput,
		},
		{
			name:       "same ingredient with the same quantity",
			surcharge:  "0",
			components: []Component{{Product: a, Quantity: 1}, {Product: a, Quantity: 1}},
			wantErr:    shared.ErrDuplicateComponent,
		},
		{
			name:       "same ingredient with different quantities",
			surcharge:  "0",
			components: []Component{{Product: a, Quantity: 1}, {Product: b, Quantity: 1}, {Product: a, Quantity: 2}},
			wantErr:    shared.ErrDuplicateComponent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRecipe(decimal.RequireFromString(tt.surcharge), tt.components...)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
