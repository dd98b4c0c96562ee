package persistence

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/arashan/vecdb/pkg/vdberrors"
)

// SerializedVector is one live record captured in a snapshot.
type SerializedVector struct {
	InternalID uint64
	StringID   string
	Data       []float32
	Metadata   map[string]string
}

// Snapshot is a durable image of the entire store: every live vector plus
// the next-id counter and the shared dimension, grounded on
// original_source's DatabaseSnapshot.
type Snapshot struct {
	Vectors      []SerializedVector
	NextID       uint64
	Dimension    int
	DimensionSet bool
}

// manifest is the human-readable sidecar written next to the binary
// snapshot, for operational inspection without decoding gob.
type manifest struct {
	VectorCount int    `json:"vector_count"`
	NextID      uint64 `json:"next_id"`
	Dimension   int    `json:"dimension"`
}

// SnapshotManager saves and loads Snapshot images under a data directory,
// as snapshot.bin (binary) plus manifest.json (human-readable sidecar).
type SnapshotManager struct {
	dir string
}

// NewSnapshotManager creates a manager rooted at dir, creating it if
// absent.
func NewSnapshotManager(dir string) (*SnapshotManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, vdberrors.IO("create data directory", err)
	}
	return &SnapshotManager{dir: dir}, nil
}

func (m *SnapshotManager) snapshotPath() string {
	return filepath.Join(m.dir, "snapshot.bin")
}

func (m *SnapshotManager) manifestPath() string {
	return filepath.Join(m.dir, "manifest.json")
}

// Exists reports whether a snapshot has been saved.
func (m *SnapshotManager) Exists() bool {
	_, err := os.Stat(m.snapshotPath())
	return err == nil
}

// Save writes the binary snapshot and its JSON manifest sidecar.
func (m *SnapshotManager) Save(s Snapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return vdberrors.Serialization("encode snapshot", err)
	}
	if err := os.WriteFile(m.snapshotPath(), buf.Bytes(), 0o644); err != nil {
		return vdberrors.IO("write snapshot", err)
	}

	man := manifest{
		VectorCount: len(s.Vectors),
		NextID:      s.NextID,
		Dimension:   s.Dimension,
	}
	manBytes, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return vdberrors.Serialization("encode manifest", err)
	}
	if err := os.WriteFile(m.manifestPath(), manBytes, 0o644); err != nil {
		return vdberrors.IO("write manifest", err)
	}
	return nil
}

// Load reads the binary snapshot, returning (Snapshot{}, false, nil) if
// none has been saved yet.
func (m *SnapshotManager) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(m.snapshotPath())
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, vdberrors.IO("read snapshot", err)
	}

	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return Snapshot{}, false, vdberrors.Serialization("decode snapshot", err)
	}
	return s, true, nil
}
