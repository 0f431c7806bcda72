package btree

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// metaPage (page id 0) is reserved for process-wide state: the next-id
// counter in its first 8 bytes, and the tree's current root page id in the
// 8 bytes after that.
const (
	metaNextIDOffset = 0
	metaRootIDOffset = 8
)

// defaultCacheCapacity bounds the number of pages PageManager keeps warm in
// memory, per the reference design.
const defaultCacheCapacity = 1000

// PageManager is the only component that performs file I/O for pages and
// the only authority on page identifiers. Page access goes through a
// bounded cache (ristretto) so hot paths of the tree don't round-trip
// through the filesystem on every descent.
type PageManager struct {
	mu       sync.Mutex
	file     *os.File
	pageSize int
	nextID   uint64

	cache *ristretto.Cache[uint64, *Page]
}

// OpenPageManager opens or creates the file at path and prepares it for
// page-level access at pageSize. A brand-new file gets a meta page with
// next-id counter initialized to 1 and no root yet. cacheCapacity bounds
// the number of pages kept warm in memory; 0 selects defaultCacheCapacity.
func OpenPageManager(path string, pageSize, cacheCapacity int) (*PageManager, error) {
	if pageSize <= PageHeaderSize {
		return nil, fmt.Errorf("jparque: page size %d too small", pageSize)
	}
	if cacheCapacity <= 0 {
		cacheCapacity = defaultCacheCapacity
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open page file %s: %w", path, err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, *Page]{
		NumCounters: int64(cacheCapacity) * 10,
		MaxCost:     int64(cacheCapacity),
		BufferItems: 64,
		// Each page costs exactly 1, so MaxCost counts pages.
		IgnoreInternalCost: true,
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	pm := &PageManager{
		file:     f,
		pageSize: pageSize,
		cache:    cache,
	}

	stat, err := f.Stat()
	if err != nil {
		pm.Close()
		return nil, fmt.Errorf("stat page file: %w", err)
	}

	if stat.Size() == 0 {
		pm.nextID = 1
		if err := pm.writeMeta(); err != nil {
			pm.Close()
			return nil, err
		}
	} else {
		meta := make([]byte, pageSize)
		if _, err := f.ReadAt(meta, 0); err != nil {
			pm.Close()
			return nil, fmt.Errorf("read meta page: %w", err)
		}
		pm.nextID = binary.BigEndian.Uint64(meta[metaNextIDOffset:])
	}

	return pm, nil
}

// PageSize reports the fixed page size this manager was opened with.
func (pm *PageManager) PageSize() int { return pm.pageSize }

// writeMeta persists the next-id counter into page 0, keeping the root id
// stored after it.
func (pm *PageManager) writeMeta() error {
	buf := make([]byte, pm.pageSize)
	if _, err := pm.file.ReadAt(buf, 0); err != nil && err != io.EOF {
		return fmt.Errorf("read meta page: %w", err)
	}
	binary.BigEndian.PutUint64(buf[metaNextIDOffset:], pm.nextID)
	_, err := pm.file.WriteAt(buf, 0)
	return err
}

// RootID returns the persisted root page id, or 0 if the tree has no root
// yet.
func (pm *PageManager) RootID() (uint64, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	buf := make([]byte, 16)
	if _, err := pm.file.ReadAt(buf, 0); err != nil {
		return 0, fmt.Errorf("read meta page: %w", err)
	}
	return binary.BigEndian.Uint64(buf[metaRootIDOffset:]), nil
}

// SetRootID persists the tree's current root page id into the meta page.
func (pm *PageManager) SetRootID(id uint64) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	if _, err := pm.file.WriteAt(buf, metaRootIDOffset); err != nil {
		return fmt.Errorf("persist root id: %w", err)
	}
	return nil
}

// AllocatePage returns a fresh page id, persists the advanced next-id
// counter, and writes a zeroed page at that id's offset so a subsequent
// ReadPage succeeds.
func (pm *PageManager) AllocatePage() (uint64, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	id := pm.nextID
	pm.nextID++
	if err := pm.writeMeta(); err != nil {
		pm.nextID--
		return 0, fmt.Errorf("persist next-id counter: %w", err)
	}

	buf := make([]byte, pm.pageSize)
	page := NewPage(buf)
	page.SetID(id)

	offset := int64(id) * int64(pm.pageSize)
	if _, err := pm.file.WriteAt(buf, offset); err != nil {
		return 0, fmt.Errorf("allocate page %d: %w", id, err)
	}

	pm.cache.Set(id, page, 1)
	pm.cache.Wait()
	return id, nil
}

// ReadPage returns a view over page id, consulting the cache first.
func (pm *PageManager) ReadPage(id uint64) (*Page, error) {
	if page, ok := pm.cache.Get(id); ok {
		return page, nil
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	buf := make([]byte, pm.pageSize)
	offset := int64(id) * int64(pm.pageSize)
	n, err := pm.file.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("read page %d: %w", id, err)
	}

	page := NewPage(buf)
	pm.cache.Set(id, page, 1)
	pm.cache.Wait()
	return page, nil
}

// WritePage persists page to disk and refreshes the cache entry.
func (pm *PageManager) WritePage(page *Page) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	offset := int64(page.ID()) * int64(pm.pageSize)
	if _, err := pm.file.WriteAt(page.Bytes(), offset); err != nil {
		return fmt.Errorf("write page %d: %w", page.ID(), err)
	}
	pm.cache.Set(page.ID(), page, 1)
	pm.cache.Wait()
	return nil
}

// Sync flushes OS buffers for the underlying file.
func (pm *PageManager) Sync() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.file.Sync()
}

// Close releases the file handle and cache resources. It implies Sync.
func (pm *PageManager) Close() error {
	pm.mu.Lock()
	file := pm.file
	pm.file = nil
	pm.mu.Unlock()

	if pm.cache != nil {
		pm.cache.Close()
	}
	if file == nil {
		return nil
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync before close: %w", err)
	}
	return file.Close()
}
