// Package lineimport loads the pipe-separated inventory format into a warehouse.
//
// Every line is decoded into one of the closed set of Record variants and applied
// through the warehouse registry. Load stops at the first failing line; Validate
// runs the whole input against a scratch warehouse and collects every failure.
package lineimport

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/ggc/backend/internal/domain/warehouse"
	"go.uber.org/zap"
)

// LoadResult summarises a successful load
type LoadResult struct {
	LinesRead         int `json:"lines_read"`
	BlankLines        int `json:"blank_lines"`
	Records           int `json:"records"`
	Partners          int `json:"partners"`
	SimpleProducts    int `json:"simple_products"`
	AggregateProducts int `json:"aggregate_products"`
	Batches           int `json:"batches"`
}

// Parser applies inventory lines to a warehouse
type Parser struct {
	warehouse    *warehouse.Warehouse
	separator    string
	maxLineBytes int
	maxErrors    int
	logger       *zap.Logger
}

// ParserOption is a functional option for Parser configuration
type ParserOption func(*Parser)

// WithSeparator sets the field separator (default is "|")
func WithSeparator(sep string) ParserOption {
	return func(p *Parser) {
		if sep != "" {
			p.separator = sep
		}
	}
}

// WithMaxLineBytes sets the maximum accepted line length
func WithMaxLineBytes(n int) ParserOption {
	return func(p *Parser) {
		p.maxLineBytes = n
	}
}

// WithMaxErrors sets how many errors Validate keeps
func WithMaxErrors(n int) ParserOption {
	return func(p *Parser) {
		p.maxErrors = n
	}
}

// WithLogger sets a logger for per-record debug output
func WithLogger(logger *zap.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a parser that loads into w
func NewParser(w *warehouse.Warehouse, opts ...ParserOption) *Parser {
	p := &Parser{
		warehouse:    w,
		separator:    DefaultSeparator,
		maxLineBytes: DefaultMaxLineBytes,
		maxErrors:    100,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadFile opens path and loads it
func (p *Parser) LoadFile(ctx context.Context, path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return p.Load(ctx, f)
}

// Load reads every line of source and applies it to the warehouse.
// The first failing line aborts the load with a *LoadError; the warehouse must then be discarded.
func (p *Parser) Load(ctx context.Context, source io.Reader) (*LoadResult, error) {
	reader, err := NewLineReader(source, p.maxLineBytes)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	for {
		if err := ctx.Err(); err != nil {
			le := newLoadError(shared.CodeLoadCancelled, "load cancelled").at(reader.LinesRead(), "")
			le.Err = err
			return nil, le
		}

		line, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec, err := DecodeLine(line.Text, p.separator)
		if err != nil {
			return nil, err.(*LoadError).at(line.Number, line.Text)
		}
		if le := p.apply(p.warehouse, rec); le != nil {
			return nil, le.at(line.Number, line.Text)
		}

		result.Records++
		p.logger.Debug("Record applied",
			zap.Int("line", line.Number),
			zap.String("type", string(rec.Tag())),
		)
	}

	stats := p.warehouse.Stats()
	result.LinesRead = reader.LinesRead()
	result.BlankLines = reader.Skipped()
	result.Partners = stats.Partners
	result.SimpleProducts = stats.SimpleProducts
	result.AggregateProducts = stats.AggregateProducts
	result.Batches = stats.Batches
	return result, nil
}

// Validate dry-runs source against a scratch warehouse, collecting every failing line.
// The parser's own warehouse is never modified. Only read failures are returned as error.
func (p *Parser) Validate(ctx context.Context, source io.Reader) (*ValidationResult, error) {
	reader, err := NewLineReader(source, p.maxLineBytes)
	if err != nil {
		return nil, err
	}

	scratch := warehouse.New()
	errs := NewErrorCollection(p.maxErrors)
	result := &ValidationResult{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("validation cancelled: %w", err)
		}

		line, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			le, ok := err.(*LoadError)
			if !ok {
				return nil, err
			}
			result.Records++
			errs.Add(le)
			if le.Code == shared.CodeMalformedRecord {
				// the scanner cannot resume after an over-long line
				break
			}
			continue
		}

		result.Records++
		rec, err := DecodeLine(line.Text, p.separator)
		if err != nil {
			errs.Add(err.(*LoadError).at(line.Number, line.Text))
			continue
		}
		if le := p.apply(scratch, rec); le != nil {
			errs.Add(le.at(line.Number, line.Text))
			continue
		}
		result.ValidRecords++
	}

	result.TotalLines = reader.LinesRead()
	result.ErrorRecords = errs.TotalCount()
	result.SetErrors(errs)
	return result, nil
}

func (p *Parser) apply(w *warehouse.Warehouse, rec Record) *LoadError {
	switch r := rec.(type) {
	case PartnerRecord:
		return applyPartner(w, r)
	case SimpleBatchRecord:
		return applySimpleBatch(w, r)
	case AggregateBatchRecord:
		return applyAggregateBatch(w, r)
	default:
		return newLoadError(shared.CodeUnknownRecordType, fmt.Sprintf("unsupported record %T", rec))
	}
}

func applyPartner(w *warehouse.Warehouse, r PartnerRecord) *LoadError {
	if _, err := w.RegisterPartner(r.ID, r.Name, r.Address); err != nil {
		return fromDomainError(err, shared.CodeNotFound)
	}
	return nil
}

// applySimpleBatch resolves the partner before registering the product so that a
// failing line never leaves a product behind.
func applySimpleBatch(w *warehouse.Warehouse, r SimpleBatchRecord) *LoadError {
	partner, err := w.GetPartner(r.PartnerID)
	if err != nil {
		return fromDomainError(err, shared.CodeUnknownPartner)
	}
	product, err := w.RegisterSimpleProduct(r.ProductID, r.Stock, r.Price)
	if err != nil {
		return fromDomainError(err, shared.CodeNotFound)
	}
	if _, err := w.RegisterBatch(product, partner, r.Price, r.Stock); err != nil {
		return fromDomainError(err, shared.CodeNotFound)
	}
	return nil
}

func applyAggregateBatch(w *warehouse.Warehouse, r AggregateBatchRecord) *LoadError {
	components := make([]warehouse.Component, 0, len(r.Components))
	for _, spec := range r.Components {
		if spec.ProductID == r.ProductID {
			return fieldError(shared.CodeRecipeCycle, "components", spec.ProductID,
				fmt.Sprintf("product '%s' cannot be a component of itself", r.ProductID))
		}
		ingredient, err := w.GetProduct(spec.ProductID)
		if err != nil {
			le := fieldError(shared.CodeUnknownComponent, "components", spec.ProductID,
				fmt.Sprintf("component '%s' is not a registered product", spec.ProductID))
			le.Err = err
			return le
		}
		components = append(components, warehouse.Component{Product: ingredient, Quantity: spec.Quantity})
	}

	partner, err := w.GetPartner(r.PartnerID)
	if err != nil {
		return fromDomainError(err, shared.CodeUnknownPartner)
	}
	if w.HasProduct(r.ProductID) {
		return fieldError(shared.CodeDuplicateID, "product", r.ProductID,
			fmt.Sprintf("product '%s' is already registered", r.ProductID))
	}
	recipe, err := warehouse.NewRecipe(r.Surcharge, components...)
	if err != nil {
		return fromDomainError(err, shared.CodeNotFound)
	}
	product, err := w.RegisterAggregateProduct(r.ProductID, r.Stock, recipe, r.Price)
	if err != nil {
		return fromDomainError(err, shared.CodeUnknownComponent)
	}
	if _, err := w.RegisterBatch(product, partner, r.Price, r.Stock); err != nil {
		return fromDomainError(err, shared.CodeNotFound)
	}
	return nil
}
