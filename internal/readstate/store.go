package readstate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/peterbourgon/diskv/v3"

	"github.com/abelbrown/daybook/internal/model"
)

// readItemsKey is the single document the read map is stored under.
const readItemsKey = "read-items"

// Persistence is the get/set contract injected around the tracker.
// Read state outlives queries and sessions; implementations must treat
// a missing document as an empty map, never as an error.
type Persistence interface {
	Get() (model.ReadItems, error)
	Set(model.ReadItems) error
}

// DiskStore persists the read map as a single JSON document in a
// diskv-backed directory.
type DiskStore struct {
	d *diskv.Diskv
}

// OpenDiskStore creates a DiskStore rooted at basePath. The directory
// is created on first write.
func OpenDiskStore(basePath string) *DiskStore {
	return &DiskStore{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 1024 * 1024, // 1MB
	})}
}

// Get loads the persisted read map. A missing or empty document yields
// an empty map.
func (s *DiskStore) Get() (model.ReadItems, error) {
	if !s.d.Has(readItemsKey) {
		return model.ReadItems{}, nil
	}
	data, err := s.d.Read(readItemsKey)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ReadItems{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", readItemsKey, err)
	}

	read := model.ReadItems{}
	if err := json.Unmarshal(data, &read); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", readItemsKey, err)
	}
	return read, nil
}

// Set persists the read map, replacing the previous document.
func (s *DiskStore) Set(read model.ReadItems) error {
	data, err := json.Marshal(read)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", readItemsKey, err)
	}
	if err := s.d.Write(readItemsKey, data); err != nil {
		return fmt.Errorf("write %s: %w", readItemsKey, err)
	}
	return nil
}
