// Package btree implements the paged B+Tree key-value store: a slotted
// page layout, an on-disk page manager with a bounded cache, overflow
// chains for oversized values, and the tree operations built on top of
// them.
package btree

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"jparque/record"
	"jparque/storage"
)

// Options configures Open. The zero value is valid and selects the
// defaults described in the package's design notes.
type Options struct {
	PageSize      int
	CacheCapacity int
	Logger        *logrus.Logger
}

// BTreeEngine is an ordered key/value store built on PageManager. It
// implements storage.Engine.
type BTreeEngine struct {
	pm     *PageManager
	degree int
	logger *logrus.Logger
}

var _ storage.Engine = (*BTreeEngine)(nil)

// Open opens or creates the B+Tree file at path. A brand-new file gets a
// fresh LEAF root; an existing file's remembered root id is validated and,
// if it no longer names a LEAF or BRANCH page, a fresh root is allocated in
// its place.
func Open(path string, opts Options) (*BTreeEngine, error) {
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	pm, err := OpenPageManager(path, pageSize, opts.CacheCapacity)
	if err != nil {
		return nil, err
	}

	e := &BTreeEngine{
		pm:     pm,
		degree: (pageSize - PageHeaderSize) / (2 * ElementSize),
		logger: logger,
	}
	if e.degree < 2 {
		e.degree = 2
	}

	if err := e.ensureRoot(); err != nil {
		pm.Close()
		return nil, err
	}
	return e, nil
}

func (e *BTreeEngine) ensureRoot() error {
	rootID, err := e.pm.RootID()
	if err != nil {
		return err
	}

	if rootID != 0 {
		page, err := e.pm.ReadPage(rootID)
		if err == nil && (page.IsLeaf() || page.IsBranch()) {
			return nil
		}
		e.logger.WithField("root_id", rootID).Warn("btree: remembered root page is not a valid leaf or branch; reinitializing")
	}

	id, err := e.pm.AllocatePage()
	if err != nil {
		return fmt.Errorf("allocate root page: %w", err)
	}
	root, err := e.pm.ReadPage(id)
	if err != nil {
		return err
	}
	root.SetID(id)
	root.SetFlags(FlagLeaf)
	if err := e.pm.WritePage(root); err != nil {
		return err
	}
	return e.pm.SetRootID(id)
}

// descend walks from the root to the leaf that would contain key, returning
// that leaf and the ancestor branch page ids visited along the way (root
// first).
func (e *BTreeEngine) descend(key []byte) (*Page, []uint64, error) {
	rootID, err := e.pm.RootID()
	if err != nil {
		return nil, nil, err
	}
	if rootID == 0 {
		return nil, nil, fmt.Errorf("%w: tree has no root", storage.ErrCorruption)
	}

	var path []uint64
	cur := rootID
	for {
		page, err := e.pm.ReadPage(cur)
		if err != nil {
			return nil, nil, fmt.Errorf("read page %d during descent: %w", cur, err)
		}
		if page.IsLeaf() {
			return page, path, nil
		}
		if !page.IsBranch() {
			return nil, nil, fmt.Errorf("%w: page %d has neither LEAF nor BRANCH role during descent", storage.ErrCorruption, cur)
		}

		idx := branchChildIndex(page, key)
		elem := page.Element(idx)
		if elem == nil {
			return nil, nil, fmt.Errorf("%w: branch page %d is missing child element %d", storage.ErrCorruption, cur, idx)
		}
		path = append(path, cur)
		cur = elem.ChildPageID()
	}
}

// branchChildIndex finds the last index whose separator key is <= key.
// In the leftmost branch of each level, index 0's stored separator is the
// empty key, the reserved -infinity sentinel that makes child 0 the
// catch-all for every key smaller than index 1's separator; in a branch
// produced by a split, index 0's separator is the key promoted with it,
// which the parent already enforces as that subtree's lower bound. A key
// smaller than every separator still resolves to index 0 rather than
// falling off the front of the page.
func branchChildIndex(page *Page, key []byte) int {
	idx, found := page.search(key)
	if found {
		return idx
	}
	if idx == 0 {
		return 0
	}
	return idx - 1
}

// Write encodes value and stores it under key, splitting leaves (and, in
// cascade, branches) as needed.
func (e *BTreeEngine) Write(key []byte, value record.Fields) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: key must not be empty", storage.ErrInvalidArgument)
	}

	encoded := EncodeValue(value)

	leaf, path, err := e.descend(key)
	if err != nil {
		return err
	}

	idx, found := leaf.search(key)
	if found {
		existing := leaf.Element(idx)
		if existing.HasOverflow() {
			if err := freeOverflowChain(e.pm, existing.OverflowPageID()); err != nil {
				return fmt.Errorf("free superseded overflow chain: %w", err)
			}
		}
		// A differently-sized replacement value can't be written in place
		// (PutElement only rewrites a slot of the same length); remove the
		// existing entry first so the insert below always follows the
		// ordinary fits-or-splits path, per the "delete and re-insert"
		// resolution for a variable-length replacement.
		if err := removeElement(leaf, idx); err != nil {
			return err
		}
	}

	budget := leaf.freeSpaceForInsert() - putElementSafetyMargin - ElementSize - len(key)
	if budget < 0 {
		budget = 0
	}

	var payload []byte
	var hasOverflow bool
	if len(encoded) <= budget {
		payload, hasOverflow = encoded, false
	} else {
		head, err := writeOverflowChain(e.pm, encoded)
		if err != nil {
			return fmt.Errorf("write overflow chain: %w", err)
		}
		payload, hasOverflow = encodePageID(head), true
	}

	if leaf.PutElement(key, payload, hasOverflow) {
		e.logger.WithField("key", string(key)).Debug("btree: wrote entry in place")
		return e.pm.WritePage(leaf)
	}

	e.logger.WithField("key", string(key)).Debug("btree: leaf full, splitting")
	return e.splitAndPromote(leaf, path, key, payload, hasOverflow)
}

// WriteBatch applies writes sequentially.
func (e *BTreeEngine) WriteBatch(records []record.Record) error {
	for _, r := range records {
		if err := e.Write(r.Key, r.Value); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the decoded value map for key, or ok=false if key was never
// written (or was deleted).
func (e *BTreeEngine) Read(key []byte) (record.Fields, bool, error) {
	leaf, _, err := e.descend(key)
	if err != nil {
		return nil, false, err
	}

	idx, found := leaf.search(key)
	if !found {
		return nil, false, nil
	}

	elem := leaf.Element(idx)
	raw, err := e.materializeValue(elem)
	if err != nil {
		return nil, false, err
	}
	return DecodeValue(raw), true, nil
}

func (e *BTreeEngine) materializeValue(elem *Element) ([]byte, error) {
	if elem.HasOverflow() {
		raw, err := readOverflowChain(e.pm, elem.OverflowPageID())
		if err != nil {
			return nil, fmt.Errorf("read overflow chain: %w", err)
		}
		return raw, nil
	}
	return append([]byte(nil), elem.Value()...), nil
}

// Scan returns entries with start <= key <= end (end inclusive; a nil end
// means unbounded) from the single leaf reached by descending for start.
// This engine does not traverse leaf siblings, so a scan range spanning
// more than one leaf only returns the first leaf's matches — a documented
// limitation, not a bug.
func (e *BTreeEngine) Scan(start, end []byte, columns []string) ([]record.Record, error) {
	leaf, _, err := e.descend(start)
	if err != nil {
		return nil, err
	}

	var out []record.Record
	for i := 0; i < leaf.Count(); i++ {
		elem := leaf.Element(i)
		key := elem.Key()
		if unsignedCompare(key, start) < 0 {
			continue
		}
		if end != nil && unsignedCompare(key, end) > 0 {
			break
		}

		raw, err := e.materializeValue(elem)
		if err != nil {
			return nil, err
		}
		fields := DecodeValue(raw)
		if len(columns) > 0 {
			fields = fields.Project(columns)
		}
		out = append(out, record.Record{Key: append([]byte(nil), key...), Value: fields})
	}
	return out, nil
}

// Delete removes key, rebuilding the leaf from its remaining entries. A
// missing key is a no-op. There is no rebalancing against siblings.
func (e *BTreeEngine) Delete(key []byte) error {
	leaf, _, err := e.descend(key)
	if err != nil {
		return err
	}

	idx, found := leaf.search(key)
	if !found {
		return nil
	}

	elem := leaf.Element(idx)
	if elem.HasOverflow() {
		if err := freeOverflowChain(e.pm, elem.OverflowPageID()); err != nil {
			return fmt.Errorf("free overflow chain on delete: %w", err)
		}
	}

	if err := removeElement(leaf, idx); err != nil {
		return err
	}
	return e.pm.WritePage(leaf)
}

// Close syncs and closes the underlying page manager.
func (e *BTreeEngine) Close() error {
	return e.pm.Close()
}

// slotEntry is a detached copy of one page element, used while rebuilding a
// page's contents during split, delete, or a length-changing overwrite.
type slotEntry struct {
	key, value  []byte
	hasOverflow bool
}

func copyEntry(e *Element) slotEntry {
	return slotEntry{
		key:         append([]byte(nil), e.Key()...),
		value:       append([]byte(nil), e.Value()...),
		hasOverflow: e.HasOverflow(),
	}
}

// removeElement rebuilds leaf without the entry at idx. PutElement can only
// rewrite a slot in place when the new payload is the same length as the
// old one, so both Delete and a differently-sized Write overwrite go
// through this detach-and-rebuild path rather than relying on PutElement
// alone.
func removeElement(leaf *Page, idx int) error {
	remaining := make([]slotEntry, 0, leaf.Count()-1)
	for i := 0; i < leaf.Count(); i++ {
		if i == idx {
			continue
		}
		remaining = append(remaining, copyEntry(leaf.Element(i)))
	}

	leaf.Reset()
	for _, r := range remaining {
		if !leaf.PutElement(r.key, r.value, r.hasOverflow) {
			return fmt.Errorf("%w: could not rebuild leaf after removing entry", storage.ErrCorruption)
		}
	}
	return nil
}

// splitAndPromote rebuilds page's contents plus (newKey, newValue) in key
// order, partitions them across page and a freshly allocated sibling, and
// links the sibling into the parent (or creates a new root if page had
// none), recursing if the parent itself is full. It is used both for leaf
// splits and, recursively, for branch splits — the slotted-page mechanics
// are identical for both roles.
func (e *BTreeEngine) splitAndPromote(page *Page, path []uint64, newKey, newValue []byte, newHasOverflow bool) error {
	combined := make([]slotEntry, 0, page.Count()+1)
	for i := 0; i < page.Count(); i++ {
		el := page.Element(i)
		if unsignedCompare(el.Key(), newKey) == 0 {
			continue
		}
		combined = append(combined, copyEntry(el))
	}
	insertPos := sort.Search(len(combined), func(i int) bool {
		return unsignedCompare(combined[i].key, newKey) >= 0
	})
	combined = append(combined, slotEntry{})
	copy(combined[insertPos+1:], combined[insertPos:])
	combined[insertPos] = slotEntry{key: newKey, value: newValue, hasOverflow: newHasOverflow}

	if len(combined) < 2 {
		return fmt.Errorf("%w: cannot split a page holding fewer than two entries", storage.ErrCapacityExceeded)
	}

	splitPoint := e.degree / 2
	if splitPoint < 1 {
		splitPoint = 1
	}
	if splitPoint > len(combined)-1 {
		splitPoint = len(combined) - 1
	}

	role := page.Flags() & (FlagLeaf | FlagBranch)

	rightID, err := e.pm.AllocatePage()
	if err != nil {
		return fmt.Errorf("allocate split sibling: %w", err)
	}
	rightPage, err := e.pm.ReadPage(rightID)
	if err != nil {
		return err
	}
	rightPage.SetID(rightID)
	rightPage.SetFlags(role)

	page.Reset()
	for i := 0; i < splitPoint; i++ {
		if !page.PutElement(combined[i].key, combined[i].value, combined[i].hasOverflow) {
			return fmt.Errorf("%w: left half of split does not fit back into one page", storage.ErrCapacityExceeded)
		}
	}
	for i := splitPoint; i < len(combined); i++ {
		if !rightPage.PutElement(combined[i].key, combined[i].value, combined[i].hasOverflow) {
			return fmt.Errorf("%w: right half of split does not fit into one page", storage.ErrCapacityExceeded)
		}
	}

	if err := e.pm.WritePage(page); err != nil {
		return err
	}
	if err := e.pm.WritePage(rightPage); err != nil {
		return err
	}

	promote := combined[splitPoint].key

	if len(path) == 0 {
		return e.createNewRoot(page, rightPage, promote)
	}

	parentID := path[len(path)-1]
	parent, err := e.pm.ReadPage(parentID)
	if err != nil {
		return err
	}
	if parent.PutElement(promote, encodePageID(rightID), false) {
		return e.pm.WritePage(parent)
	}
	return e.splitAndPromote(parent, path[:len(path)-1], promote, encodePageID(rightID), false)
}

// createNewRoot builds a fresh BRANCH root over left and right. left becomes
// child 0, so its separator is the reserved empty key rather than its own
// first key: nothing bounds child 0 from below, and a stale stand-in for
// "smallest key currently in left" would stop being a valid lower bound the
// moment a later insert lands below it. right gets its own first key as an
// ordinary separator, per the first-key-of-right-sibling rule.
func (e *BTreeEngine) createNewRoot(left, right *Page, rightSep []byte) error {
	rootID, err := e.pm.AllocatePage()
	if err != nil {
		return fmt.Errorf("allocate new root: %w", err)
	}
	root, err := e.pm.ReadPage(rootID)
	if err != nil {
		return err
	}
	root.SetID(rootID)
	root.SetFlags(FlagBranch)

	if !root.PutElement(nil, encodePageID(left.ID()), false) {
		return fmt.Errorf("%w: new root cannot hold its left child entry", storage.ErrCapacityExceeded)
	}
	if !root.PutElement(rightSep, encodePageID(right.ID()), false) {
		return fmt.Errorf("%w: new root cannot hold its right child entry", storage.ErrCapacityExceeded)
	}
	if err := e.pm.WritePage(root); err != nil {
		return err
	}
	return e.pm.SetRootID(rootID)
}
