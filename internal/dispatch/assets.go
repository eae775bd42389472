package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrAssetMiss is returned by an AssetStore when the inventory names an
// asset the store cannot actually produce. The line is dropped; the
// manifest and the store have drifted apart.
var ErrAssetMiss = errors.New("dispatch: asset not in store")

// AssetStore serves pre-rendered voice audio by content id. Fetch returns
// the encoded clip; Save archives a generated clip under its id so later
// dispatches of the same line hit without re-synthesizing.
type AssetStore interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, data []byte) error
}

// assetExtensions lists the encodings a voice pack may ship, in lookup
// order. Generated clips are saved as mp3.
var assetExtensions = []string{".ogg", ".mp3", ".wav"}

// DirStore is an AssetStore over a flat directory, one file per asset id.
type DirStore struct {
	dir string
}

// NewDirStore opens (creating if needed) the asset directory at dir.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dispatch: asset dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Fetch reads the clip stored under id, trying each known extension.
func (s *DirStore) Fetch(_ context.Context, id string) ([]byte, error) {
	for _, ext := range assetExtensions {
		data, err := os.ReadFile(filepath.Join(s.dir, id+ext))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("dispatch: read asset %s: %w", id, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAssetMiss, id)
}

// Save writes data under id. The write goes to a uniquely named temp file
// first and is renamed into place, so a concurrent Fetch never sees a
// partial clip.
func (s *DirStore) Save(_ context.Context, id string, data []byte) error {
	tmp := filepath.Join(s.dir, uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("dispatch: save asset %s: %w", id, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, id+".mp3")); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("dispatch: save asset %s: %w", id, err)
	}
	return nil
}
