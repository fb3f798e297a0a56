package warehouse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Component is one ingredient line of a recipe
type Component struct {
	Product  *Product
	Quantity int
}

// Recipe is the bill of materials of an aggregate product.
// Components form a set keyed by ingredient product id and keep declaration order.
type Recipe struct {
	surcharge  decimal.Decimal
	components []Component
}

// NewRecipe creates a recipe, rejecting negative surcharges, non-positive
// quantities, nil ingredients and ingredients listed more than once.
func NewRecipe(surcharge decimal.Decimal, components ...Component) (*Recipe, error) {
	if surcharge.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("surcharge cannot be negative: %s", surcharge))
	}
	if len(components) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "recipe needs at least one component")
	}

	seen := make(map[string]struct{}, len(components))
	for _, c := range components {
		if c.Product == nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "recipe component has no product")
		}
		if err := validateStruct(componentInput{Quantity: c.Quantity}); err != nil {
			return nil, fmt.Errorf("component '%s': %w", c.Product.ID, err)
		}
		if _, dup := seen[c.Product.ID]; dup {
			return nil, shared.NewDomainError(shared.CodeDuplicateComponent,
				fmt.Sprintf("component '%s' listed more than once", c.Product.ID))
		}
		seen[c.Product.ID] = struct{}{}
	}

	return &Recipe{
		surcharge:  surcharge,
		components: append([]Component(nil), components...),
	}, nil
}

// Surcharge returns the multiplicative surcharge factor
func (r *Recipe) Surcharge() decimal.Decimal {
	return r.surcharge
}

// Components returns the recipe components in declaration order
func (r *Recipe) Components() []Component {
	return append([]Component(nil), r.components...)
}

// Contains reports whether productID is a direct ingredient
func (r *Recipe) Contains(productID string) bool {
	for _, c := range r.components {
		if c.Product.ID == productID {
			return true
		}
	}
	return false
}

// String renders the component list as id:qty#id:qty
func (r *Recipe) String() string {
	parts := make([]string, len(r.components))
	for i, c := range r.components {
		parts[i] = c.Product.ID + ":" + strconv.Itoa(c.Quantity)
	}
	return strings.Join(parts, "#")
}

// reaches reports whether target is reachable through the recipe graph
func (r *Recipe) reaches(target string, visited map[string]bool) bool {
	if r.Contains(target) {
		return true
	}
	for _, c := range r.components {
		id := c.Product.ID
		if visited[id] {
			continue
		}
		visited[id] = true
		if c.Product.recipe != nil && c.Product.recipe.reaches(target, visited) {
			return true
		}
	}
	return false
}
