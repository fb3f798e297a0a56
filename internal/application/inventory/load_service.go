// Package inventoryapp loads inventory files into a warehouse and publishes the result.
package inventoryapp

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/ggc/backend/internal/domain/warehouse"
	lineimport "github.com/ggc/backend/internal/infrastructure/import"
	"github.com/ggc/backend/internal/infrastructure/persistence/models"
	"github.com/ggc/backend/internal/infrastructure/storage"
	"github.com/ggc/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CodeSourceUnavailable labels failures to resolve or read a source
const CodeSourceUnavailable = "SOURCE_UNAVAILABLE"

// ErrSourceUnavailable wraps failures to resolve or read a source
var ErrSourceUnavailable = shared.NewDomainError(CodeSourceUnavailable, "inventory source unavailable")

// ErrNoSource is returned by Reload when no default source is configured
var ErrNoSource = shared.NewDomainError(shared.CodeInvalidInput, "no inventory source configured")

// SourceResolver maps a uri to readable content
type SourceResolver interface {
	Resolve(uri string) (storage.Source, error)
}

// SnapshotStore persists published warehouses
type SnapshotStore interface {
	Save(ctx context.Context, source, digest string, w *warehouse.Warehouse) (*models.SnapshotModel, error)
	FindByDigest(ctx context.Context, digest string) (*models.SnapshotModel, error)
}

// LoadReport describes a successful load
type LoadReport struct {
	Source     string                 `json:"source"`
	Scheme     string                 `json:"scheme"`
	Digest     string                 `json:"digest"`
	Bytes      int                    `json:"bytes"`
	Result     *lineimport.LoadResult `json:"result"`
	Stats      warehouse.Stats        `json:"stats"`
	Duration   time.Duration          `json:"duration"`
	LoadedAt   time.Time              `json:"loaded_at"`
	SnapshotID *uuid.UUID             `json:"snapshot_id,omitempty"`
	// Unchanged is set by LoadIfChanged when the content matched the published warehouse
	Unchanged bool `json:"unchanged,omitempty"`
	// SnapshotSkipped is set when the digest had already been persisted
	SnapshotSkipped bool   `json:"snapshot_skipped,omitempty"`
	SnapshotError   string `json:"snapshot_error,omitempty"`
}

// LoadService reads inventory sources, loads them into fresh warehouses and
// publishes each successful load through a WarehouseHolder. Loads are serialised.
type LoadService struct {
	resolver      SourceResolver
	holder        *WarehouseHolder
	parserOpts    []lineimport.ParserOption
	snapshots     SnapshotStore
	idempotency   shared.IdempotencyStore
	idempotentTTL time.Duration
	metrics       *telemetry.LoadMetrics
	defaultSource string
	logger        *zap.Logger

	mu sync.Mutex
}

// Option configures a LoadService
type Option func(*LoadService)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *LoadService) {
		s.logger = logger
	}
}

// WithParserOptions passes options to every parser the service creates
func WithParserOptions(opts ...lineimport.ParserOption) Option {
	return func(s *LoadService) {
		s.parserOpts = append(s.parserOpts, opts...)
	}
}

// WithSnapshots persists every newly seen inventory to store
func WithSnapshots(store SnapshotStore) Option {
	return func(s *LoadService) {
		s.snapshots = store
	}
}

// WithIdempotency skips snapshots of content whose digest store has already seen
func WithIdempotency(store shared.IdempotencyStore, ttl time.Duration) Option {
	return func(s *LoadService) {
		s.idempotency = store
		s.idempotentTTL = ttl
	}
}

// WithMetrics records load metrics
func WithMetrics(m *telemetry.LoadMetrics) Option {
	return func(s *LoadService) {
		s.metrics = m
	}
}

// WithDefaultSource sets the uri used by Reload
func WithDefaultSource(uri string) Option {
	return func(s *LoadService) {
		s.defaultSource = uri
	}
}

// NewLoadService creates a LoadService
func NewLoadService(resolver SourceResolver, holder *WarehouseHolder, opts ...Option) *LoadService {
	s := &LoadService{
		resolver: resolver,
		holder:   holder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Holder returns the holder the service publishes to
func (s *LoadService) Holder() *WarehouseHolder {
	return s.holder
}

// DefaultSource returns the uri used by Reload
func (s *LoadService) DefaultSource() string {
	return s.defaultSource
}

// Reload loads the default source
func (s *LoadService) Reload(ctx context.Context) (*LoadReport, error) {
	if s.defaultSource == "" {
		return nil, ErrNoSource
	}
	return s.Load(ctx, s.defaultSource)
}

// Load reads uri into a fresh warehouse and publishes it. On failure the
// previously published warehouse stays in place.
func (s *LoadService) Load(ctx context.Context, uri string) (*LoadReport, error) {
	return s.load(ctx, uri, false)
}

// LoadIfChanged is Load, except that content identical to the published
// warehouse's source is not parsed again.
func (s *LoadService) LoadIfChanged(ctx context.Context, uri string) (*LoadReport, error) {
	return s.load(ctx, uri, true)
}

func (s *LoadService) load(ctx context.Context, uri string, skipUnchanged bool) (*LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "inventory.load", telemetry.SpanAttrSource, uri)
	defer span.End()

	log := s.logger.With(zap.String("source", uri))

	src, content, err := s.read(ctx, uri)
	scheme := ""
	if src != nil {
		scheme = src.Scheme()
	}
	if err != nil {
		s.fail(ctx, log, scheme, start, CodeSourceUnavailable, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	digest := digestOf(content)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDigest, digest,
		telemetry.SpanAttrBytes, len(content),
	)

	if pub := s.holder.Publication(); skipUnchanged && pub.Source == uri && pub.Digest == digest {
		log.Debug("Inventory unchanged", zap.String("digest", digest))
		telemetry.SetOK(span)
		return &LoadReport{
			Source:    uri,
			Scheme:    scheme,
			Digest:    digest,
			Bytes:     len(content),
			Stats:     pub.Warehouse.Stats(),
			Duration:  time.Since(start),
			LoadedAt:  pub.LoadedAt,
			Unchanged: true,
		}, nil
	}

	w := warehouse.New()
	result, err := lineimport.NewParser(w, s.parserOptions(log)...).Load(ctx, bytes.NewReader(content))
	if err != nil {
		var le *lineimport.LoadError
		if errors.As(err, &le) {
			telemetry.SetAttributes(span, telemetry.SpanAttrLine, le.Line, telemetry.SpanAttrCode, le.Code)
		}
		s.fail(ctx, log, scheme, start, shared.CodeOf(err), err)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("load %s: %w", uri, err)
	}

	s.holder.Swap(w, uri, digest)
	stats := w.Stats()
	duration := time.Since(start)

	report := &LoadReport{
		Source:   uri,
		Scheme:   scheme,
		Digest:   digest,
		Bytes:    len(content),
		Result:   result,
		Stats:    stats,
		Duration: duration,
		LoadedAt: s.holder.LoadedAt(),
	}

	if s.metrics != nil {
		s.metrics.RecordSuccess(ctx, scheme, duration, result.Records, stats)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRecords, result.Records)
	telemetry.SetOK(span)

	log.Info("Inventory loaded",
		zap.String("digest", digest),
		zap.Int("records", result.Records),
		zap.Int("partners", stats.Partners),
		zap.Int("products", stats.Products()),
		zap.Int("batches", stats.Batches),
		zap.Duration("duration", duration),
	)

	s.snapshot(ctx, log, report, w)
	return report, nil
}

// Validate dry-runs uri without publishing anything
func (s *LoadService) Validate(ctx context.Context, uri string) (*lineimport.ValidationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "inventory.validate", telemetry.SpanAttrSource, uri)
	defer span.End()

	_, content, err := s.read(ctx, uri)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result, err := lineimport.NewParser(warehouse.New(), s.parserOptions(s.logger)...).Validate(ctx, bytes.NewReader(content))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("validate %s: %w", uri, err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRecords, result.Records)
	telemetry.SetOK(span)
	return result, nil
}

func (s *LoadService) read(ctx context.Context, uri string) (storage.Source, []byte, error) {
	src, err := s.resolver.Resolve(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return src, nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return src, nil, fmt.Errorf("%w: read %s: %w", ErrSourceUnavailable, uri, err)
	}
	return src, content, nil
}

func (s *LoadService) parserOptions(log *zap.Logger) []lineimport.ParserOption {
	opts := make([]lineimport.ParserOption, 0, len(s.parserOpts)+1)
	opts = append(opts, lineimport.WithLogger(log))
	return append(opts, s.parserOpts...)
}

func (s *LoadService) fail(ctx context.Context, log *zap.Logger, scheme string, start time.Time, code string, err error) {
	if s.metrics != nil {
		s.metrics.RecordFailure(ctx, scheme, time.Since(start), code)
	}
	log.Error("Inventory load failed",
		zap.String("code", code),
		zap.Error(err),
	)
}

// snapshot failures are reported but never undo a publication.
// Without an idempotency store the snapshot table itself is searched for the digest.
func (s *LoadService) snapshot(ctx context.Context, log *zap.Logger, report *LoadReport, w *warehouse.Warehouse) {
	if s.snapshots == nil {
		return
	}

	if s.idempotency != nil {
		seen, err := s.idempotency.IsProcessed(ctx, report.Digest)
		if err != nil {
			log.Warn("Idempotency check failed, saving snapshot anyway", zap.Error(err))
		} else if seen {
			report.SnapshotSkipped = true
			log.Debug("Snapshot already stored for digest", zap.String("digest", report.Digest))
			return
		}
	} else {
		existing, err := s.snapshots.FindByDigest(ctx, report.Digest)
		switch {
		case err == nil:
			report.SnapshotSkipped = true
			report.SnapshotID = &existing.ID
			log.Debug("Snapshot already stored for digest",
				zap.String("digest", report.Digest),
				zap.String("snapshot_id", existing.ID.String()),
			)
			return
		case !errors.Is(err, shared.ErrNotFound):
			log.Warn("Snapshot lookup failed, saving snapshot anyway", zap.Error(err))
		}
	}

	saved, err := s.snapshots.Save(ctx, report.Source, report.Digest, w)
	if err != nil {
		report.SnapshotError = err.Error()
		log.Error("Failed to save snapshot", zap.Error(err))
		return
	}
	report.SnapshotID = &saved.ID
	log.Info("Snapshot saved", zap.String("snapshot_id", saved.ID.String()))

	if s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, report.Digest, s.idempotentTTL); err != nil {
			log.Warn("Failed to mark digest processed", zap.Error(err))
		}
	}
}

func digestOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
