package inventoryapp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ggc/backend/internal/domain/shared"
	"github.com/ggc/backend/internal/domain/warehouse"
	"github.com/ggc/backend/internal/infrastructure/cache"
	lineimport "github.com/ggc/backend/internal/infrastructure/import"
	"github.com/ggc/backend/internal/infrastructure/persistence/models"
	"github.com/ggc/backend/internal/infrastructure/storage"
	"github.com/ggc/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func hasPartner(w *warehouse.Warehouse, id string) bool {
	_, err := w.GetPartner(id)
	return err == nil
}

const validInventory = `PARTNER|P1|ACME|Lisbon
BATCH_S|X1|P1|10.5|100
BATCH_M|X2|P1|30.0|5|0.1|X1:2
`

// MockSnapshotStore is a mock implementation of SnapshotStore
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Save(ctx context.Context, source, digest string, w *warehouse.Warehouse) (*models.SnapshotModel, error) {
	args := m.Called(ctx, source, digest, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SnapshotModel), args.Error(1)
}

func (m *MockSnapshotStore) FindByDigest(ctx context.Context, digest string) (*models.SnapshotModel, error) {
	args := m.Called(ctx, digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SnapshotModel), args.Error(1)
}

func writeInventory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newService(opts ...Option) (*LoadService, *WarehouseHolder) {
	holder := NewWarehouseHolder()
	return NewLoadService(storage.NewSourceResolver(nil), holder, opts...), holder
}

func TestLoadService_Load(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc, holder := newService(WithLogger(zap.New(core)))
	path := writeInventory(t, validInventory)

	before := holder.Current()
	assert.False(t, holder.Loaded())

	report, err := svc.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, report.Source)
	assert.Equal(t, storage.SchemeFile, report.Scheme)
	assert.Len(t, report.Digest, 64)
	assert.Equal(t, len(validInventory), report.Bytes)
	assert.Equal(t, 3, report.Result.Records)
	assert.Equal(t, warehouse.Stats{Partners: 1, SimpleProducts: 1, AggregateProducts: 1, Batches: 2}, report.Stats)
	assert.Nil(t, report.SnapshotID)

	assert.NotSame(t, before, holder.Current())
	assert.True(t, holder.Loaded())
	assert.Equal(t, report.Digest, holder.Digest())
	assert.Equal(t, path, holder.Publication().Source)
	assert.True(t, holder.Current().HasProduct("X2"))

	assert.Equal(t, 1, logs.FilterMessage("Inventory loaded").Len())
}

func TestLoadService_FailureKeepsPreviousWarehouse(t *testing.T) {
	svc, holder := newService()
	good := writeInventory(t, validInventory)
	bad := writeInventory(t, "PARTNER|P1|ACME|Lisbon\nBATCH_S|X1|P9|1|1\n")

	_, err := svc.Load(context.Background(), good)
	require.NoError(t, err)
	published := holder.Current()
	digest := holder.Digest()

	_, err = svc.Load(context.Background(), bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, lineimport.ErrUnknownPartner)
	assert.Contains(t, err.Error(), bad)

	var le *lineimport.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 2, le.Line)

	assert.Same(t, published, holder.Current())
	assert.Equal(t, digest, holder.Digest())
}

func TestLoadService_SourceErrors(t *testing.T) {
	svc, holder := newService()

	_, err := svc.Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = svc.Load(context.Background(), "ftp://example.com/inventory.txt")
	assert.ErrorIs(t, err, storage.ErrInvalidURI)
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	assert.False(t, holder.Loaded())
}

func TestLoadService_Reload(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Reload(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)

	path := writeInventory(t, validInventory)
	svc, holder := newService(WithDefaultSource(path))
	assert.Equal(t, path, svc.DefaultSource())
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, holder.Loaded())
}

func TestLoadService_ParserOptions(t *testing.T) {
	svc, holder := newService(WithParserOptions(lineimport.WithSeparator(";")))
	path := writeInventory(t, "PARTNER;P1;ACME;Lisbon\n")

	_, err := svc.Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, hasPartner(holder.Current(), "P1"))
}

func TestLoadService_Snapshots(t *testing.T) {
	path := writeInventory(t, validInventory)

	t.Run("saves once per digest", func(t *testing.T) {
		store := new(MockSnapshotStore)
		id := uuid.New()
		store.On("Save", mock.Anything, path, mock.AnythingOfType("string"), mock.AnythingOfType("*warehouse.Warehouse")).
			Return(&models.SnapshotModel{ID: id}, nil).Once()

		idem := cache.NewInMemoryIdempotencyStore(time.Minute)
		defer idem.Close()
		svc, _ := newService(WithSnapshots(store), WithIdempotency(idem, time.Hour))

		first, err := svc.Load(context.Background(), path)
		require.NoError(t, err)
		require.NotNil(t, first.SnapshotID)
		assert.Equal(t, id, *first.SnapshotID)

		second, err := svc.Load(context.Background(), path)
		require.NoError(t, err)
		assert.Nil(t, second.SnapshotID)
		assert.True(t, second.SnapshotSkipped)

		store.AssertExpectations(t)
	})

	t.Run("save failure keeps publication", func(t *testing.T) {
		store := new(MockSnapshotStore)
		store.On("Save", mock.Anything, path, mock.Anything, mock.Anything).
			Return(nil, errors.New("disk full"))

		idem := cache.NewInMemoryIdempotencyStore(time.Minute)
		defer idem.Close()
		svc, holder := newService(WithSnapshots(store), WithIdempotency(idem, time.Hour))

		report, err := svc.Load(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "disk full", report.SnapshotError)
		assert.True(t, holder.Loaded())

		seen, err := idem.IsProcessed(context.Background(), report.Digest)
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("without idempotency store the digest is looked up", func(t *testing.T) {
		store := new(MockSnapshotStore)
		id := uuid.New()
		store.On("FindByDigest", mock.Anything, mock.AnythingOfType("string")).
			Return(nil, shared.ErrNotFound).Once()
		store.On("Save", mock.Anything, path, mock.Anything, mock.Anything).
			Return(&models.SnapshotModel{ID: id}, nil).Once()
		store.On("FindByDigest", mock.Anything, mock.AnythingOfType("string")).
			Return(&models.SnapshotModel{ID: id}, nil).Once()

		svc, _ := newService(WithSnapshots(store))

		first, err := svc.Load(context.Background(), path)
		require.NoError(t, err)
		assert.False(t, first.SnapshotSkipped)
		require.NotNil(t, first.SnapshotID)

		second, err := svc.Load(context.Background(), path)
		require.NoError(t, err)
		assert.True(t, second.SnapshotSkipped)
		require.NotNil(t, second.SnapshotID)
		assert.Equal(t, id, *second.SnapshotID)

		store.AssertExpectations(t)
		store.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("digest lookup failure still saves", func(t *testing.T) {
		store := new(MockSnapshotStore)
		store.On("FindByDigest", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
		store.On("Save", mock.Anything, path, mock.Anything, mock.Anything).
			Return(&models.SnapshotModel{ID: uuid.New()}, nil).Once()

		svc, _ := newService(WithSnapshots(store))
		report, err := svc.Load(context.Background(), path)
		require.NoError(t, err)
		assert.NotNil(t, report.SnapshotID)
		assert.Empty(t, report.SnapshotError)
		store.AssertExpectations(t)
	})

	t.Run("failed load is not persisted", func(t *testing.T) {
		store := new(MockSnapshotStore)
		svc, _ := newService(WithSnapshots(store))

		_, err := svc.Load(context.Background(), writeInventory(t, "FOO|1|2\n"))
		assert.ErrorIs(t, err, lineimport.ErrUnknownRecordType)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLoadService_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, zap.NewNop())
	metrics, err := telemetry.NewLoadMetrics(mp.Meter("test"))
	require.NoError(t, err)

	svc, _ := newService(WithMetrics(metrics))
	_, err = svc.Load(context.Background(), writeInventory(t, validInventory))
	require.NoError(t, err)
	_, err = svc.Load(context.Background(), writeInventory(t, "PARTNER|P2|OnlyName\n"))
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	outcomes := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "ggc.inventory.loads" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(telemetry.AttrOutcome)
				outcomes[outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"success": 1, "failure": 1}, outcomes)
}

func TestLoadService_Validate(t *testing.T) {
	svc, holder := newService()
	path := writeInventory(t, "PARTNER|P1|ACME|Lisbon\nPARTNER|P1|Dup|X\nFOO|1\nBATCH_S|X1|P1|1|1\n")

	result, err := svc.Validate(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, result.IsValid())
	assert.Equal(t, 4, result.Records)
	assert.Equal(t, 2, result.ValidRecords)
	assert.Equal(t, 2, result.ErrorRecords)
	assert.False(t, holder.Loaded())
}

func TestLoadService_ConcurrentLoadsAndReads(t *testing.T) {
	svc, holder := newService()
	path := writeInventory(t, validInventory)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Load(context.Background(), path)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			w := holder.Current()
			stats := w.Stats()
			// a published warehouse is either empty or complete
			assert.Contains(t, []int{0, 2}, stats.Batches)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, holder.Current().Stats().Batches)
}

func TestLoadService_LoadIfChanged(t *testing.T) {
	svc, holder := newService()
	path := writeInventory(t, validInventory)

	first, err := svc.LoadIfChanged(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, first.Unchanged)
	published := holder.Current()

	second, err := svc.LoadIfChanged(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Same(t, published, holder.Current())

	third, err := svc.Load(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, third.Unchanged)
	assert.NotSame(t, published, holder.Current())
}
