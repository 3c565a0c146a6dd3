package lode

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/msival/metrics"
	"github.com/justapithecus/msival/types"
)

// LodeClient is a Lode-backed Client.
// Records use HiveLayout with partition keys package/day/run_id/record_kind.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error

	mu sync.Mutex // serializes dataset writes
}

// NewLodeClient creates a Lode client with filesystem storage rooted at root.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a Lode client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	ds, err := NewDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, newStorageError(OpInit, "", cfg.RunID, cfg.Dataset, err)
	}
	return &LodeClient{dataset: ds, config: cfg, storeFactory: factory}, nil
}

// WriteOutputs writes a batch of delivered outputs as one snapshot.
func (c *LodeClient) WriteOutputs(ctx context.Context, outputs []*types.Output) error {
	if len(outputs) == 0 {
		return nil
	}

	records := make([]any, 0, len(outputs))
	for _, o := range outputs {
		records = append(records, toOutputRecordMap(o, c.config))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		se := newStorageError(OpWrite, RecordKindOutput, c.config.RunID, c.config.Dataset, err)
		se.Item = batchItem(outputs)
		return se
	}
	return nil
}

// WriteMetrics writes the run metrics record.
func (c *LodeClient) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	record := toMetricsRecordMap(snap, c.config, completedAt)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return newStorageError(OpWrite, RecordKindMetrics, c.config.RunID, c.config.Dataset, err)
	}
	return nil
}

// PutFile writes a run-scoped sidecar file, such as the run summary,
// outside the dataset's snapshot machinery.
func (c *LodeClient) PutFile(ctx context.Context, filename string, data []byte) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("invalid sidecar filename %q", filename)
	}

	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	if c.storeErr != nil {
		return newStorageError(OpInit, filename, c.config.RunID, c.config.Dataset, c.storeErr)
	}

	path := c.filePath(filename)
	if err := c.store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return newStorageError(OpWrite, filename, c.config.RunID, path, err)
	}
	return nil
}

// filePath computes the sidecar path: <RunPrefix>/files/<filename>.
func (c *LodeClient) filePath(filename string) string {
	return RunPrefix(c.config) + "/files/" + filename
}

// RunPrefix is the store key prefix holding one run's partitions and
// sidecar files: datasets/<dataset>/partitions/day=<d>/run_id=<r>.
func RunPrefix(cfg Config) string {
	dataset := cfg.Dataset
	if dataset == "" {
		dataset = DefaultDataset
	}
	return fmt.Sprintf("datasets/%s/partitions/day=%s/run_id=%s", dataset, cfg.Day, cfg.RunID)
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	return nil
}

var _ Client = (*LodeClient)(nil)
