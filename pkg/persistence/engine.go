package persistence

import (
	"log"
	"os"
	"time"

	"github.com/arashan/vecdb/pkg/distance"
	"github.com/arashan/vecdb/pkg/index"
	"github.com/arashan/vecdb/pkg/metrics"
	"github.com/arashan/vecdb/pkg/store"
	"github.com/arashan/vecdb/pkg/vdberrors"
	"github.com/arashan/vecdb/pkg/vector"
)

// EngineConfig configures a persistence Engine.
type EngineConfig struct {
	// CheckpointInterval is the number of WAL entries between automatic
	// checkpoints.
	CheckpointInterval int
	// Metric is the distance metric for the underlying index.
	Metric distance.Metric
	// HNSW holds the HNSW index's construction parameters. Zero value
	// means DefaultHNSWParams.
	HNSW index.HNSWParams
}

// DefaultEngineConfig returns the conventional defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CheckpointInterval: 1000,
		Metric:             distance.Euclidean,
		HNSW:               index.DefaultHNSWParams(),
	}
}

// Engine combines a Store with a write-ahead log and snapshot manager to
// make the in-memory state durable across crashes, grounded on
// original_source's StorageEngine.
type Engine struct {
	store     *store.Store
	wal       *Wal
	snapshots *SnapshotManager
	dataDir   string
	walCount  int
	config    EngineConfig
	collector *metrics.Collector
}

// Open creates the data directory if absent, loads the most recent
// snapshot (if any), replays the WAL on top of it, and returns a ready
// Engine.
func Open(dataDir string, cfg EngineConfig) (*Engine, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, vdberrors.IO("create data directory", err)
	}

	snapshots, err := NewSnapshotManager(dataDir)
	if err != nil {
		return nil, err
	}

	wal, err := OpenWal(walPath(dataDir))
	if err != nil {
		return nil, err
	}

	if cfg.HNSW == (index.HNSWParams{}) {
		cfg.HNSW = index.DefaultHNSWParams()
	}
	idx := index.NewHNSW(cfg.Metric, cfg.HNSW, nil)
	st := store.New(idx)

	if snap, ok, err := snapshots.Load(); err != nil {
		return nil, err
	} else if ok {
		for _, sv := range snap.Vectors {
			if len(sv.Data) == 0 {
				continue
			}
			meta := storeMetadataFrom(sv.Metadata)
			if err := st.InsertWithMetadata(sv.StringID, vector.New(sv.Data), meta); err != nil {
				return nil, err
			}
		}
	}

	entries, err := wal.Replay()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		applyWalEntry(st, entry)
	}

	return &Engine{
		store:     st,
		wal:       wal,
		snapshots: snapshots,
		dataDir:   dataDir,
		walCount:  len(entries),
		config:    cfg,
		collector: metrics.New(),
	}, nil
}

func storeMetadataFrom(fields map[string]string) store.Metadata {
	m := store.NewMetadata()
	for k, v := range fields {
		m.Insert(k, v)
	}
	return m
}

func applyWalEntry(st *store.Store, entry WalEntry) {
	switch entry.Kind {
	case EntryInsert:
		if err := st.Insert(entry.StringID, vector.New(entry.Data)); err != nil {
			log.Printf("persistence: replay insert %q failed: %v", entry.StringID, err)
		}
	case EntryDelete:
		if _, err := st.Delete(entry.StringID); err != nil {
			log.Printf("persistence: replay delete %q failed: %v", entry.StringID, err)
		}
	case EntryCheckpoint:
		// no-op during replay
	}
}

// Insert appends the WAL entry, fsyncs, then applies to the in-memory
// store. If the WAL append fails, the in-memory state is left untouched.
func (e *Engine) Insert(stringID string, vec vector.Vector) error {
	return e.InsertWithMetadata(stringID, vec, store.NewMetadata())
}

// InsertWithMetadata is Insert plus an attached metadata record.
func (e *Engine) InsertWithMetadata(stringID string, vec vector.Vector, meta store.Metadata) error {
	entry := WalEntry{Kind: EntryInsert, StringID: stringID, Data: vec.Data}
	if err := e.wal.Append(entry); err != nil {
		return err
	}
	if err := e.store.InsertWithMetadata(stringID, vec, meta); err != nil {
		return err
	}
	e.collector.RecordInsert()
	e.walCount++
	return e.maybeCheckpoint()
}

// Delete appends the WAL entry, fsyncs, then applies to the in-memory
// store, returning the vector that was removed.
func (e *Engine) Delete(stringID string) (vector.Vector, error) {
	entry := WalEntry{Kind: EntryDelete, StringID: stringID}
	if err := e.wal.Append(entry); err != nil {
		return vector.Vector{}, err
	}
	vec, err := e.store.Delete(stringID)
	if err != nil {
		return vector.Vector{}, err
	}
	e.collector.RecordDelete()
	e.walCount++
	if err := e.maybeCheckpoint(); err != nil {
		return vec, err
	}
	return vec, nil
}

// Search delegates to the store and records the query's latency.
func (e *Engine) Search(query vector.Vector, k int) ([]store.Result, error) {
	start := time.Now()
	results, err := e.store.Search(query, k)
	e.collector.RecordQuery(time.Since(start))
	return results, err
}

// SearchWithFilter delegates to the store's post-filtered search and
// records the query's latency.
func (e *Engine) SearchWithFilter(query vector.Vector, k int, filter store.Filter) ([]store.Result, error) {
	start := time.Now()
	results, err := e.store.SearchWithFilter(query, k, filter)
	e.collector.RecordQuery(time.Since(start))
	return results, err
}

// Len returns the number of live vectors.
func (e *Engine) Len() int {
	return e.store.Len()
}

// ListIDs returns every live string id.
func (e *Engine) ListIDs() []string {
	return e.store.ListIDs()
}

// Metrics exposes the engine's runtime counter bag.
func (e *Engine) Metrics() *metrics.Collector {
	return e.collector
}

// Checkpoint forces an immediate snapshot + WAL truncate.
func (e *Engine) Checkpoint() error {
	snap := e.buildSnapshot()
	if err := e.snapshots.Save(snap); err != nil {
		return err
	}
	if err := e.wal.Append(WalEntry{Kind: EntryCheckpoint}); err != nil {
		return err
	}
	if err := e.wal.Truncate(); err != nil {
		return err
	}
	e.walCount = 0
	return nil
}

func (e *Engine) maybeCheckpoint() error {
	if e.walCount >= e.config.CheckpointInterval {
		return e.Checkpoint()
	}
	return nil
}

func (e *Engine) buildSnapshot() Snapshot {
	entries := e.store.LiveEntries()
	vectors := make([]SerializedVector, len(entries))
	for i, entry := range entries {
		vectors[i] = SerializedVector{
			InternalID: entry.ID,
			StringID:   entry.StringID,
			Data:       entry.Vector.Data,
			Metadata:   entry.Metadata.Fields(),
		}
	}

	dim, dimSet := e.store.Dimension()
	return Snapshot{
		Vectors:      vectors,
		NextID:       e.store.NextID(),
		Dimension:    dim,
		DimensionSet: dimSet,
	}
}

// Close releases the WAL file handle.
func (e *Engine) Close() error {
	return e.wal.Close()
}
