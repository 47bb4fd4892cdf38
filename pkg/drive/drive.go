// SPDX-License-Identifier: BSD-3-Clause

package drive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
)

// Drive is the writable virtual drive backed by a raw FAT image file.
type Drive struct {
	path string

	mu       sync.Mutex
	attached bool
	snapshot string // path of the frozen copy served while attached
}

// New creates a handle for the image at path. The image itself is created
// lazily by Init.
func New(path string) *Drive {
	return &Drive{path: path}
}

// Path returns the image file path. The gadget attaches this file directly.
func (d *Drive) Path() string {
	return d.path
}

// Exists reports whether the image has been initialized.
func (d *Drive) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// Init creates and formats a fresh image of sizeMB megabytes. Re-
// initializing is refused while attached; an existing image is replaced.
func (d *Drive) Init(sizeMB int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.attached {
		return ErrAttached
	}
	if sizeMB <= 0 {
		sizeMB = 256
	}

	_ = os.Remove(d.path)

	size := int64(sizeMB) * 1024 * 1024
	img, err := diskfs.Create(d.path, size, diskfs.Raw, diskfs.SectorSizeDefault)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}

	_, err = img.CreateFilesystem(disk.FilesystemSpec{
		Partition:   0,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: "ONE-KVM",
	})
	if err != nil {
		_ = os.Remove(d.path)
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}

	return nil
}

// Info describes drive capacity.
type Info struct {
	Size int64 `json:"size"`
	Used int64 `json:"used"`
	Free int64 `json:"free"`
}

// Info returns image capacity and an estimate of used space from walking
// the filesystem.
func (d *Drive) Info() (Info, error) {
	st, err := os.Stat(d.activePath())
	if err != nil {
		return Info{}, ErrNotInitialized
	}

	used, err := d.usedBytes()
	if err != nil {
		return Info{}, err
	}

	info := Info{Size: st.Size(), Used: used}
	info.Free = info.Size - info.Used
	if info.Free < 0 {
		info.Free = 0
	}
	return info, nil
}

// Entry is one directory listing row.
type Entry struct {
	Name  string `json:"name"`
	Dir   bool   `json:"dir"`
	Size  int64  `json:"size"`
}

// List returns the entries of a directory inside the image.
func (d *Drive) List(path string) ([]Entry, error) {
	fs, closer, err := d.openFS(false)
	if err != nil {
		return nil, err
	}
	defer closer()

	infos, err := fs.ReadDir(normalize(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, Entry{
			Name: fi.Name(),
			Dir:  fi.IsDir(),
			Size: fi.Size(),
		})
	}
	return entries, nil
}

// ReadFile streams a file from the image into w.
func (d *Drive) ReadFile(path string, w io.Writer) error {
	fs, closer, err := d.openFS(false)
	if err != nil {
		return err
	}
	defer closer()

	f, err := fs.OpenFile(normalize(path), os.O_RDONLY)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// WriteFile creates or replaces a file inside the image from r. Refused
// while attached.
func (d *Drive) WriteFile(path string, r io.Reader) error {
	d.mu.Lock()
	if d.attached {
		d.mu.Unlock()
		return ErrAttached
	}
	d.mu.Unlock()

	fs, closer, err := d.openFS(true)
	if err != nil {
		return err
	}
	defer closer()

	f, err := fs.OpenFile(normalize(path), os.O_RDWR|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// Mkdir creates a directory inside the image. Refused while attached.
func (d *Drive) Mkdir(path string) error {
	d.mu.Lock()
	if d.attached {
		d.mu.Unlock()
		return ErrAttached
	}
	d.mu.Unlock()

	fs, closer, err := d.openFS(true)
	if err != nil {
		return err
	}
	defer closer()

	if err := fs.Mkdir(normalize(path)); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// Remove deletes a file or empty directory inside the image. Refused while
// attached.
func (d *Drive) Remove(path string) error {
	d.mu.Lock()
	if d.attached {
		d.mu.Unlock()
		return ErrAttached
	}
	d.mu.Unlock()

	fs, closer, err := d.openFS(true)
	if err != nil {
		return err
	}
	defer closer()

	type remover interface{ Remove(string) error }
	rm, ok := fs.(remover)
	if !ok {
		return fmt.Errorf("%w: delete unsupported by filesystem driver", ErrIO)
	}
	if err := rm.Remove(normalize(path)); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func (d *Drive) usedBytes() (int64, error) {
	fs, closer, err := d.openFS(false)
	if err != nil {
		return 0, err
	}
	defer closer()

	var walk func(string) (int64, error)
	walk = func(dir string) (int64, error) {
		infos, err := fs.ReadDir(dir)
		if err != nil {
			return 0, nil
		}
		var total int64
		for _, fi := range infos {
			if fi.Name() == "." || fi.Name() == ".." {
				continue
			}
			if fi.IsDir() {
				sub, err := walk(filepath.Join(dir, fi.Name()))
				if err != nil {
					return 0, err
				}
				total += sub
				continue
			}
			total += fi.Size()
		}
		return total, nil
	}
	return walk("/")
}

func (d *Drive) openFS(write bool) (filesystem.FileSystem, func(), error) {
	path := d.activePath()
	if _, err := os.Stat(path); err != nil {
		return nil, nil, ErrNotInitialized
	}

	mode := diskfs.ReadOnly
	if write {
		mode = diskfs.ReadWriteExclusive
	}

	img, err := diskfs.Open(path, diskfs.WithOpenMode(mode))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	fs, err := img.GetFilesystem(0)
	if err != nil {
		_ = img.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	return fs, func() { _ = img.Close() }, nil
}

// activePath returns the snapshot while attached, the live image otherwise.
func (d *Drive) activePath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attached && d.snapshot != "" {
		return d.snapshot
	}
	return d.path
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}
