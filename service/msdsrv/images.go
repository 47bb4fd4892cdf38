// SPDX-License-Identifier: BSD-3-Clause

package msdsrv

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/one-kvm/one-kvm/pkg/file"
)

// Image is one cataloged disk image.
type Image struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	ReadOnly  bool      `json:"ro"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

// imageStore manages <data_dir>/images: one <uuid>.img per image with a
// <uuid>.json sidecar.
type imageStore struct {
	dir string
}

func newImageStore(dataDir string) (*imageStore, error) {
	dir := filepath.Join(dataDir, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &imageStore{dir: dir}, nil
}

func (st *imageStore) imagePath(id string) string {
	return filepath.Join(st.dir, id+".img")
}

func (st *imageStore) sidecarPath(id string) string {
	return filepath.Join(st.dir, id+".json")
}

// list returns the catalog sorted by creation time.
func (st *imageStore) list() ([]Image, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, err
	}

	var images []Image
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		img, err := st.load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		images = append(images, img)
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].CreatedAt.Before(images[j].CreatedAt)
	})
	return images, nil
}

func (st *imageStore) load(id string) (Image, error) {
	data, err := os.ReadFile(st.sidecarPath(id))
	if err != nil {
		return Image{}, ErrImageMissing
	}

	var img Image
	if err := json.Unmarshal(data, &img); err != nil {
		return Image{}, fmt.Errorf("%w: corrupt sidecar: %w", ErrImageMissing, err)
	}
	img.ID = id
	return img, nil
}

// save writes an image from r, hashing it on the way, and creates the
// sidecar last so a crashed upload never leaves a cataloged half-image.
func (st *imageStore) save(name string, readOnly bool, r io.Reader) (Image, error) {
	id := uuid.New().String()
	imgPath := st.imagePath(id)

	f, err := os.Create(imgPath)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hasher), r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(imgPath)
		return Image{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	img := Image{
		ID:        id,
		Name:      name,
		Size:      size,
		ReadOnly:  readOnly,
		SHA256:    hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt: time.Now().UTC(),
	}

	sidecar, err := json.Marshal(img)
	if err != nil {
		_ = os.Remove(imgPath)
		return Image{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if err := file.AtomicCreateFile(st.sidecarPath(id), sidecar, 0o644); err != nil {
		_ = os.Remove(imgPath)
		return Image{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	return img, nil
}

// remove deletes the image and its sidecar.
func (st *imageStore) remove(id string) error {
	if _, err := st.load(id); err != nil {
		return err
	}
	if err := os.Remove(st.sidecarPath(id)); err != nil {
		return err
	}
	return os.Remove(st.imagePath(id))
}
