package lineimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Field and component separators of the inventory format
const (
	DefaultSeparator   = "|"
	ComponentSeparator = "#"
	QuantitySeparator  = ":"
)

// Bounds on decimal fields. Larger exponents make decimal arithmetic allocate without limit.
const (
	MaxDecimalExponent = 64
	MaxDecimalDigits   = 32
)

// RecordTag is the leading token that selects the record type
type RecordTag string

const (
	TagPartner        RecordTag = "PARTNER"
	TagSimpleBatch    RecordTag = "BATCH_S"
	TagAggregateBatch RecordTag = "BATCH_M"
)

// FieldCount returns the exact number of fields, tag included, a record of this type has
func (t RecordTag) FieldCount() int {
	switch t {
	case TagPartner:
		return 4
	case TagSimpleBatch:
		return 5
	case TagAggregateBatch:
		return 7
	}
	return 0
}

// IsValid checks if the tag names a known record type
func (t RecordTag) IsValid() bool {
	return t.FieldCount() > 0
}

// Record is one decoded input line. The set of implementations is closed:
// PartnerRecord, SimpleBatchRecord and AggregateBatchRecord.
type Record interface {
	Tag() RecordTag
	isRecord()
}

// PartnerRecord is PARTNER|id|name|address
type PartnerRecord struct {
	ID      string
	Name    string
	Address string
}

// SimpleBatchRecord is BATCH_S|productId|partnerId|price|stock
type SimpleBatchRecord struct {
	ProductID string
	PartnerID string
	Price     decimal.Decimal
	Stock     int
}

// AggregateBatchRecord is BATCH_M|productId|partnerId|price|stock|surcharge|components
type AggregateBatchRecord struct {
	ProductID  string
	PartnerID  string
	Price      decimal.Decimal
	Stock      int
	Surcharge  decimal.Decimal
	Components []ComponentSpec
}

// ComponentSpec is one id:qty entry of a component list
type ComponentSpec struct {
	ProductID string
	Quantity  int
}

func (PartnerRecord) Tag() RecordTag        { return TagPartner }
func (SimpleBatchRecord) Tag() RecordTag    { return TagSimpleBatch }
func (AggregateBatchRecord) Tag() RecordTag { return TagAggregateBatch }

func (PartnerRecord) isRecord()        {}
func (SimpleBatchRecord) isRecord()    {}
func (AggregateBatchRecord) isRecord() {}

// DecodeLine splits text on sep and decodes it into a Record.
// The returned error is always a *LoadError without line information.
func DecodeLine(text, sep string) (Record, error) {
	// Trailing empty fields are kept and count toward arity, so "PARTNER|P1|A|"
	// is a valid partner with an empty address and "X1:1#" is a malformed list.
	fields := strings.Split(text, sep)
	tag := RecordTag(fields[0])
	if !tag.IsValid() {
		return nil, fieldError(shared.CodeUnknownRecordType, "type", fields[0],
			fmt.Sprintf("unknown record type '%s'", fields[0]))
	}
	if want := tag.FieldCount(); len(fields) != want {
		return nil, newLoadError(shared.CodeMalformedRecord,
			fmt.Sprintf("%s record must have %d fields, got %d", tag, want, len(fields)))
	}

	switch tag {
	case TagPartner:
		return decodePartner(fields)
	case TagSimpleBatch:
		return decodeSimpleBatch(fields)
	default:
		return decodeAggregateBatch(fields)
	}
}

func decodePartner(fields []string) (Record, error) {
	if err := requireID("id", fields[1]); err != nil {
		return nil, err
	}
	return PartnerRecord{ID: fields[1], Name: fields[2], Address: fields[3]}, nil
}

func decodeSimpleBatch(fields []string) (Record, error) {
	rec := SimpleBatchRecord{ProductID: fields[1], PartnerID: fields[2]}
	if err := requireID("product", rec.ProductID); err != nil {
		return nil, err
	}
	if err := requireID("partner", rec.PartnerID); err != nil {
		return nil, err
	}

	var err error
	if rec.Price, err = parseNonNegativeDecimal("price", fields[3]); err != nil {
		return nil, err
	}
	if rec.Stock, err = parseInt("stock", fields[4], 0); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeAggregateBatch(fields []string) (Record, error) {
	rec := AggregateBatchRecord{ProductID: fields[1], PartnerID: fields[2]}
	if err := requireID("product", rec.ProductID); err != nil {
		return nil, err
	}
	if err := requireID("partner", rec.PartnerID); err != nil {
		return nil, err
	}

	var err error
	if rec.Price, err = parseNonNegativeDecimal("price", fields[3]); err != nil {
		return nil, err
	}
	if rec.Stock, err = parseInt("stock", fields[4], 0); err != nil {
		return nil, err
	}
	if rec.Surcharge, err = parseNonNegativeDecimal("surcharge", fields[5]); err != nil {
		return nil, err
	}
	if rec.Components, err = decodeComponents(fields[6]); err != nil {
		return nil, err
	}
	return rec, nil
}

// decodeComponents parses id:qty#id:qty. Each ingredient may appear once.
func decodeComponents(list string) ([]ComponentSpec, error) {
	entries := strings.Split(list, ComponentSeparator)
	specs := make([]ComponentSpec, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		parts := strings.Split(entry, QuantitySeparator)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fieldError(shared.CodeMalformedRecord, "components", entry,
				fmt.Sprintf("component '%s' must have the form id%squantity", entry, QuantitySeparator))
		}
		qty, err := parseInt("quantity", parts[1], 1)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[parts[0]]; dup {
			return nil, fieldError(shared.CodeMalformedRecord, "components", parts[0],
				fmt.Sprintf("component '%s' listed more than once", parts[0]))
		}
		seen[parts[0]] = struct{}{}
		specs = append(specs, ComponentSpec{ProductID: parts[0], Quantity: qty})
	}
	return specs, nil
}

func requireID(field, value string) error {
	if value == "" {
		return fieldError(shared.CodeMalformedRecord, field, value, fmt.Sprintf("%s id is empty", field))
	}
	return nil
}

func parseNonNegativeDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		le := fieldError(shared.CodeInvalidNumericField, field, value,
			fmt.Sprintf("%s '%s' is not a number", field, value))
		le.Err = err
		return decimal.Zero, le
	}
	if exp := d.Exponent(); exp > MaxDecimalExponent || exp < -MaxDecimalExponent || d.NumDigits() > MaxDecimalDigits {
		return decimal.Zero, fieldError(shared.CodeInvalidNumericField, field, value,
			fmt.Sprintf("%s '%s' is out of range", field, value))
	}
	if d.IsNegative() {
		return decimal.Zero, fieldError(shared.CodeInvalidNumericField, field, value,
			fmt.Sprintf("%s cannot be negative: %s", field, value))
	}
	return d, nil
}

func parseInt(field, value string, minValue int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		le := fieldError(shared.CodeInvalidNumericField, field, value,
			fmt.Sprintf("%s '%s' is not an integer", field, value))
		le.Err = err
		return 0, le
	}
	if n < minValue {
		return 0, fieldError(shared.CodeInvalidNumericField, field, value,
			fmt.Sprintf("%s must be at least %d, got %d", field, minValue, n))
	}
	return n, nil
}
