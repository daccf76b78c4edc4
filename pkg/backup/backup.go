package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	namePrefix = "backup-"
	nameLayout = "20060102-150405"
)

// Snapshot is a point-in-time export of persisted records, keyed by id.
// Values stay untyped so the archive format survives record schema
// changes; the restore side unmarshals into current types.
type Snapshot struct {
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Venues    map[string]interface{} `json:"venues,omitempty"`
	Cameras   map[string]interface{} `json:"cameras,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Storage abstracts where snapshot archives live.
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// Service writes and reads snapshot archives.
type Service struct {
	storage Storage
	version string
}

func NewService(storage Storage, version string) *Service {
	return &Service{storage: storage, version: version}
}

// CreateSnapshot serializes the snapshot and saves it under a
// timestamped name, which it returns.
func (s *Service) CreateSnapshot(ctx context.Context, snap *Snapshot) (string, error) {
	snap.Version = s.version
	snap.Timestamp = time.Now()

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	name := namePrefix + snap.Timestamp.Format(nameLayout) + ".json"
	if err := s.storage.Save(ctx, name, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}
	return name, nil
}

// LoadSnapshot reads a snapshot archive back.
func (s *Service) LoadSnapshot(ctx context.Context, name string) (*Snapshot, error) {
	reader, err := s.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots lists archive names.
func (s *Service) ListSnapshots(ctx context.Context) ([]string, error) {
	return s.storage.List(ctx, namePrefix)
}

// DeleteSnapshot removes an archive.
func (s *Service) DeleteSnapshot(ctx context.Context, name string) error {
	return s.storage.Delete(ctx, name)
}

// ParseSnapshotTime extracts the timestamp embedded in an archive name.
func ParseSnapshotTime(name string) (time.Time, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), ".json")
	ts, err := time.Parse(nameLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized snapshot name %q: %w", name, err)
	}
	return ts, nil
}
