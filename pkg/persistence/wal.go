// Package persistence implements the write-ahead log, snapshot, and
// recovery engine that make the in-memory store durable across crashes.
package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/arashan/vecdb/pkg/vdberrors"
)

// EntryKind tags a WAL record's payload shape.
type EntryKind int

const (
	EntryInsert EntryKind = iota
	EntryDelete
	EntryCheckpoint
)

// WalEntry is one record appended to the write-ahead log. Internal ids are
// deliberately not persisted; Insert carries only the string id and raw
// vector data, and the internal id is re-derived by replay order.
type WalEntry struct {
	Kind     EntryKind
	StringID string
	Data     []float32
}

// Wal is an append-only, fsync-on-write log file held open by a single
// owner. Each record is framed as
// [u32 LE payload length][u32 LE CRC-32 of payload][payload bytes],
// grounded on original_source's WriteAheadLog: bincode payload there, gob
// payload here (see DESIGN.md for why gob stands in for bincode).
type Wal struct {
	path string
	file *os.File
}

// OpenWal opens (or creates) the WAL file at path in append mode.
func OpenWal(path string) (*Wal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, vdberrors.IO("open wal", err)
	}
	return &Wal{path: path, file: f}, nil
}

// Append encodes entry, frames it, writes it, and fsyncs the file before
// returning. If the write or sync fails, no caller-visible state may have
// changed.
func (w *Wal) Append(entry WalEntry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return vdberrors.Serialization("encode wal entry", err)
	}
	payload := buf.Bytes()
	crc := crc32.ChecksumIEEE(payload)

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[4:8], crc)

	if _, err := w.file.Write(header[:]); err != nil {
		return vdberrors.IO("write wal header", err)
	}
	if _, err := w.file.Write(payload); err != nil {
		return vdberrors.IO("write wal payload", err)
	}
	if err := w.file.Sync(); err != nil {
		return vdberrors.IO("fsync wal", err)
	}
	return nil
}

// Replay reads every valid record from the start of the WAL file. It stops
// at the first record whose length prefix cannot be read, whose CRC does
// not match, or whose payload does not decode: a partial write is treated
// as if it never happened.
func (w *Wal) Replay() ([]WalEntry, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, vdberrors.IO("open wal for replay", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var entries []WalEntry

	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			break
		}
		length := binary.LittleEndian.Uint32(header[0:4])
		expectedCRC := binary.LittleEndian.Uint32(header[4:8])

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			break
		}

		if crc32.ChecksumIEEE(payload) != expectedCRC {
			break
		}

		var entry WalEntry
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&entry); err != nil {
			break
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Truncate closes the file and reopens it empty, for use right after a
// checkpoint.
func (w *Wal) Truncate() error {
	if err := w.file.Close(); err != nil {
		return vdberrors.IO("close wal before truncate", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return vdberrors.IO("truncate wal", err)
	}
	w.file = f
	return nil
}

// Close closes the underlying file handle.
func (w *Wal) Close() error {
	return w.file.Close()
}

func walPath(dataDir string) string {
	return filepath.Join(dataDir, "wal.log")
}
