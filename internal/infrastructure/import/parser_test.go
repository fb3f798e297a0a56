package lineimport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/ggc/backend/internal/domain/warehouse"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func hasPartner(w *warehouse.Warehouse, id string) bool {
	_, err := w.GetPartner(id)
	return err == nil
}

const sampleInventory = `PARTNER|P1|ACME|Lisbon
BATCH_S|X1|P1|10.5|100
BATCH_M|X2|P1|30.0|5|0.1|X1:2
`

func loadString(t *testing.T, input string, opts ...ParserOption) (*warehouse.Warehouse, *LoadResult, error) {
	t.Helper()
	w := warehouse.New()
	p := NewParser(w, opts...)
	result, err := p.Load(context.Background(), strings.NewReader(input))
	return w, result, err
}

func requireLoadError(t *testing.T, err error, code string, line int) *LoadError {
	t.Helper()
	require.Error(t, err)
	var le *LoadError
	require.True(t, errors.As(err, &le), "expected *LoadError, got %T", err)
	assert.Equal(t, code, le.Code)
	assert.Equal(t, line, le.Line)
	return le
}

func TestParser_Load_RoundTrip(t *testing.T) {
	w, result, err := loadString(t, sampleInventory, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, 3, result.LinesRead)
	assert.Equal(t, 3, result.Records)
	assert.Equal(t, 1, result.Partners)
	assert.Equal(t, 1, result.SimpleProducts)
	assert.Equal(t, 1, result.AggregateProducts)
	assert.Equal(t, 2, result.Batches)

	partner, err := w.GetPartner("P1")
	require.NoError(t, err)
	assert.Equal(t, "ACME", partner.Name)
	assert.Equal(t, "Lisbon", partner.Address)
	assert.Equal(t, 2, partner.BatchCount())

	x1, err := w.GetProduct("X1")
	require.NoError(t, err)
	assert.Equal(t, warehouse.ProductKindSimple, x1.Kind)
	assert.Equal(t, 100, x1.Stock)
	assert.Nil(t, x1.Recipe())

	x2, err := w.GetProduct("X2")
	require.NoError(t, err)
	assert.Equal(t, warehouse.ProductKindAggregate, x2.Kind)
	assert.Equal(t, 5, x2.Stock)
	require.NotNil(t, x2.Recipe())
	assert.True(t, decimal.RequireFromString("0.1").Equal(x2.Recipe().Surcharge()))
	components := x2.Recipe().Components()
	require.Len(t, components, 1)
	assert.Same(t, x1, components[0].Product)
	assert.Equal(t, 2, components[0].Quantity)

	batches, err := w.PartnerBatches("P1")
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "X1", batches[0].ProductID)
	assert.Equal(t, "X2", batches[1].ProductID)
	assert.True(t, decimal.RequireFromString("10.5").Equal(batches[0].Price))
}

func TestParser_Load_LineHandling(t *testing.T) {
	t.Run("empty input is an empty warehouse", func(t *testing.T) {
		w, result, err := loadString(t, "")
		require.NoError(t, err)
		assert.Zero(t, result.Records)
		assert.Equal(t, warehouse.Stats{}, w.Stats())
	})

	t.Run("BOM, CRLF and blank lines", func(t *testing.T) {
		input := "\uFEFFPARTNER|P1|ACME|Lisbon\r\n\r\n   \r\nBATCH_S|X1|P1|1|2\r\n"
		w, result, err := loadString(t, input)
		require.NoError(t, err)
		assert.Equal(t, 4, result.LinesRead)
		assert.Equal(t, 2, result.BlankLines)
		assert.Equal(t, 2, result.Records)
		assert.True(t, hasPartner(w, "P1"))
		assert.True(t, w.HasProduct("X1"))
	})

	t.Run("fields are not trimmed", func(t *testing.T) {
		w, _, err := loadString(t, "PARTNER|P1| ACME |Lisbon\n")
		require.NoError(t, err)
		p, err := w.GetPartner("P1")
		require.NoError(t, err)
		assert.Equal(t, " ACME ", p.Name)
	})

	t.Run("custom separator", func(t *testing.T) {
		w, _, err := loadString(t, "PARTNER;P1;ACME;Lisbon\nBATCH_S;X1;P1;1;1\n", WithSeparator(";"))
		require.NoError(t, err)
		assert.True(t, w.HasProduct("X1"))
	})

	t.Run("invalid UTF-8", func(t *testing.T) {
		_, _, err := loadString(t, "PARTNER|P1|AC\xffME|Lisbon\n")
		requireLoadError(t, err, shared.CodeInvalidEncoding, 1)
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("line too long", func(t *testing.T) {
		input := "PARTNER|P1|ACME|Lisbon\nPARTNER|P2|" + strings.Repeat("a", 200) + "|x\n"
		_, _, err := loadString(t, input, WithMaxLineBytes(64))
		requireLoadError(t, err, shared.CodeMalformedRecord, 2)
	})
}

func TestParser_Load_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
		line  int
	}{
		{"partner with too few fields", "PARTNER|P2|OnlyName", shared.CodeMalformedRecord, 1},
		{"unknown tag", "FOO|1|2", shared.CodeUnknownRecordType, 1},
		{"lowercase tag", "partner|P1|A|B", shared.CodeUnknownRecordType, 1},
		{"trailing separator adds a field", "PARTNER|P1|A|B|", shared.CodeMalformedRecord, 1},
		{"duplicate partner", "PARTNER|P1|A|B\nPARTNER|P1|C|D", shared.CodeDuplicateID, 2},
		{"empty partner id", "PARTNER||A|B", shared.CodeMalformedRecord, 1},
		{"unknown partner", "BATCH_S|X1|P9|1|1", shared.CodeUnknownPartner, 1},
		{"non-numeric price", "PARTNER|P1|A|B\nBATCH_S|X1|P1|abc|1", shared.CodeInvalidNumericField, 2},
		{"negative stock", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|-1", shared.CodeInvalidNumericField, 2},
		{"fractional stock", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1.5", shared.CodeInvalidNumericField, 2},
		{"duplicate product across kinds", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1\nBATCH_S|X2|P1|1|1\nBATCH_M|X2|P1|1|1|0|X1:1", shared.CodeDuplicateID, 4},
		{"unknown component", "PARTNER|P1|A|B\nBATCH_M|X2|P1|1|1|0|X1:1", shared.CodeUnknownComponent, 2},
		{"self reference", "PARTNER|P1|A|B\nBATCH_M|X2|P1|1|1|0|X2:1", shared.CodeRecipeCycle, 2},
		{"component without quantity", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1\nBATCH_M|X2|P1|1|1|0|X1", shared.CodeMalformedRecord, 3},
		{"component with extra part", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1\nBATCH_M|X2|P1|1|1|0|X1:1:2", shared.CodeMalformedRecord, 3},
		{"zero quantity", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1\nBATCH_M|X2|P1|1|1|0|X1:0", shared.CodeInvalidNumericField, 3},
		{"duplicate ingredient", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1\nBATCH_M|X2|P1|1|1|0|X1:1#X1:2", shared.CodeMalformedRecord, 3},
		{"price exponent too large", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1e900000000|1", shared.CodeInvalidNumericField, 2},
		{"price exponent too small", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1e-900000000|1", shared.CodeInvalidNumericField, 2},
		{"price with too many digits", "PARTNER|P1|A|B\nBATCH_S|X1|P1|" + strings.Repeat("9", MaxDecimalDigits+1) + "|1", shared.CodeInvalidNumericField, 2},
		{"surcharge exponent too large", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1\nBATCH_M|X2|P1|1|1|1e65|X1:1", shared.CodeInvalidNumericField, 3},
		{"negative surcharge", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1\nBATCH_M|X2|P1|1|1|-0.1|X1:1", shared.CodeInvalidNumericField, 3},
		{"aggregate with unknown partner", "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1\nBATCH_M|X2|P9|1|1|0|X1:1", shared.CodeUnknownPartner, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, result, err := loadString(t, tt.input)
			assert.Nil(t, result)
			le := requireLoadError(t, err, tt.code, tt.line)
			assert.NotEmpty(t, le.Raw)
			assert.Contains(t, le.Error(), "line ")
		})
	}
}

func TestParser_Load_SentinelMatching(t *testing.T) {
	_, _, err := loadString(t, "PARTNER|P1|A|B\nPARTNER|P1|A|B")
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.ErrorIs(t, err, shared.ErrDuplicateID)
	assert.NotErrorIs(t, err, ErrUnknownPartner)
}

func TestParser_Load_StopsAtFirstFailure(t *testing.T) {
	input := "PARTNER|P1|A|B\nBATCH_S|X1|P9|1|1\nPARTNER|P2|C|D\n"
	w, _, err := loadString(t, input)
	requireLoadError(t, err, shared.CodeUnknownPartner, 2)

	assert.True(t, hasPartner(w, "P1"))
	assert.False(t, hasPartner(w, "P2"), "lines after the failure must not be applied")
	assert.False(t, w.HasProduct("X1"), "failed line must not leave a product behind")
	assert.Empty(t, w.Batches())
}

func TestParser_Load_FailedAggregateLeavesNoTrace(t *testing.T) {
	const prefix = "PARTNER|P1|A|B\nBATCH_S|X1|P1|1|1\n"
	tests := []struct {
		name        string
		lines       string
		code        string
		wantBatches int
		existingX2  bool
	}{
		{"unknown partner", "BATCH_M|X2|P9|1|1|0|X1:1", shared.CodeUnknownPartner, 1, false},
		{"unknown component", "BATCH_M|X2|P1|1|1|0|X9:1", shared.CodeUnknownComponent, 1, false},
		{"duplicate of a simple product", "BATCH_S|X2|P1|1|1\nBATCH_M|X2|P1|1|1|0|X1:1", shared.CodeDuplicateID, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _, err := loadString(t, prefix+tt.lines)
			requireLoadError(t, err, tt.code, 3+strings.Count(tt.lines, "\n"))

			assert.Len(t, w.Batches(), tt.wantBatches)
			partnerBatches, err := w.PartnerBatches("P1")
			require.NoError(t, err)
			assert.Len(t, partnerBatches, tt.wantBatches)

			x1Batches, err := w.ProductBatches("X1")
			require.NoError(t, err)
			assert.Len(t, x1Batches, 1)

			if !tt.existingX2 {
				assert.False(t, w.HasProduct("X2"))
				return
			}
			x2, err := w.GetProduct("X2")
			require.NoError(t, err)
			assert.Equal(t, warehouse.ProductKindSimple, x2.Kind)
			assert.Nil(t, x2.Recipe())
		})
	}
}

func TestParser_Load_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewParser(warehouse.New())
	_, err := p.Load(ctx, strings.NewReader(sampleInventory))
	requireLoadError(t, err, shared.CodeLoadCancelled, 0)
	assert.ErrorIs(t, err, ErrLoadCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParser_LoadFile(t *testing.T) {
	t.Run("loads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "inventory.txt")
		require.NoError(t, os.WriteFile(path, []byte(sampleInventory), 0o600))

		p := NewParser(warehouse.New())
		result, err := p.LoadFile(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Batches)
	})

	t.Run("missing file", func(t *testing.T) {
		p := NewParser(warehouse.New())
		_, err := p.LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParser_ApplyRecords(t *testing.T) {
	w := warehouse.New()
	p := NewParser(w)

	require.Nil(t, p.apply(w, PartnerRecord{ID: "P1", Name: "A", Address: "B"}))
	require.Nil(t, p.apply(w, SimpleBatchRecord{ProductID: "X1", PartnerID: "P1", Price: decimal.NewFromInt(2), Stock: 3}))

	le := p.apply(w, AggregateBatchRecord{
		ProductID:  "X2",
		PartnerID:  "P1",
		Price:      decimal.NewFromInt(10),
		Stock:      1,
		Components: []ComponentSpec{{ProductID: "X9", Quantity: 1}},
	})
	require.NotNil(t, le)
	assert.ErrorIs(t, le, ErrUnknownComponent)
	assert.False(t, w.HasProduct("X2"))
}

func TestParser_Validate(t *testing.T) {
	input := strings.Join([]string{
		"PARTNER|P1|ACME|Lisbon",
		"PARTNER|P1|ACME|Porto",
		"BATCH_S|X1|P1|10|5",
		"BATCH_S|X2|P9|10|5",
		"",
		"FOO|bar",
		"BATCH_M|X3|P1|1|1|0|X1:2",
	}, "\n")

	w := warehouse.New()
	p := NewParser(w)
	result, err := p.Validate(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.False(t, result.IsValid())
	assert.Equal(t, 7, result.TotalLines)
	assert.Equal(t, 6, result.Records)
	assert.Equal(t, 3, result.ValidRecords)
	assert.Equal(t, 3, result.ErrorRecords)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 2, result.Errors[0].Line)
	assert.Equal(t, shared.CodeDuplicateID, result.Errors[0].Code)
	assert.Equal(t, 4, result.Errors[1].Line)
	assert.Equal(t, shared.CodeUnknownPartner, result.Errors[1].Code)
	assert.Equal(t, 6, result.Errors[2].Line)
	assert.Equal(t, shared.CodeUnknownRecordType, result.Errors[2].Code)
	assert.Equal(t, 1, result.Summary[shared.CodeDuplicateID])

	assert.Equal(t, warehouse.Stats{}, w.Stats(), "validate must not touch the parser's warehouse")
}

func TestParser_Validate_Truncates(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("NOPE|x\n")
	}

	p := NewParser(warehouse.New(), WithMaxErrors(3))
	result, err := p.Validate(context.Background(), strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Len(t, result.Errors, 3)
	assert.Equal(t, 10, result.TotalErrors)
	assert.True(t, result.IsTruncated)
}

func TestParser_Validate_ValidInput(t *testing.T) {
	p := NewParser(warehouse.New())
	result, err := p.Validate(context.Background(), strings.NewReader(sampleInventory))
	require.NoError(t, err)
	assert.True(t, result.IsValid())
	assert.Equal(t, 3, result.ValidRecords)
	assert.Empty(t, result.Errors)
}
