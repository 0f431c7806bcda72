package btree

import (
	"encoding/binary"
	"fmt"
)

// Page header layout, big-endian, following the BoltDB-style slotted page
// this engine is modeled on: id(8) flags(2) count(2) overflow(4).
const (
	pageIDOffset       = 0
	pageFlagsOffset    = 8
	pageCountOffset    = 10
	pageOverflowOffset = 12
	PageHeaderSize     = 16

	// Element (slot) header layout, 16 bytes: pos(4) flags(4) keySize(4) valueSize(4).
	elemPosOffset   = 0
	elemFlagsOffset = 4
	elemKSizeOffset = 8
	elemVSizeOffset = 12
	ElementSize     = 16

	// elemFlagOverflow marks a slot's value as an 8-byte overflow chain head
	// id rather than an inline value.
	elemFlagOverflow = 1

	// putElementSafetyMargin is reserved headroom below the strict
	// byte-accounting so a page never looks exactly full on disk.
	putElementSafetyMargin = 8
)

// PageFlag is a bitmask; exactly one of Branch/Leaf/Meta/Freelist/Overflow
// distinguishes a page's role.
type PageFlag uint16

const (
	FlagBranch   PageFlag = 1 << 0
	FlagLeaf     PageFlag = 1 << 1
	FlagMeta     PageFlag = 1 << 2
	FlagFreelist PageFlag = 1 << 3
	FlagOverflow PageFlag = 1 << 4
)

// DefaultPageSize is used when a database is opened without an explicit
// override.
const DefaultPageSize = 4096

// Page is a view over a fixed-size byte buffer laid out as a slotted
// container: a header, a directory of fixed-size slots growing forward from
// the header, and key/value payloads growing backward from the end of the
// page. A Page is a borrowed view for the duration of one operation; it does
// not own the buffer and holds no reference back to whatever manages it.
type Page struct {
	buf []byte
}

// NewPage wraps buf (which must be exactly pageSize bytes) as a Page.
func NewPage(buf []byte) *Page {
	return &Page{buf: buf}
}

func (p *Page) Bytes() []byte { return p.buf }
func (p *Page) Size() int     { return len(p.buf) }

func (p *Page) ID() uint64 {
	return binary.BigEndian.Uint64(p.buf[pageIDOffset:])
}

func (p *Page) SetID(id uint64) {
	binary.BigEndian.PutUint64(p.buf[pageIDOffset:], id)
}

func (p *Page) Flags() PageFlag {
	return PageFlag(binary.BigEndian.Uint16(p.buf[pageFlagsOffset:]))
}

func (p *Page) SetFlags(f PageFlag) {
	binary.BigEndian.PutUint16(p.buf[pageFlagsOffset:], uint16(f))
}

func (p *Page) Count() int {
	return int(binary.BigEndian.Uint16(p.buf[pageCountOffset:]))
}

func (p *Page) setCount(n int) {
	binary.BigEndian.PutUint16(p.buf[pageCountOffset:], uint16(n))
}

// Overflow returns the header's overflow-successor field: for an OVERFLOW
// page this is the next page in the chain (0 at the end); it is unused for
// other page roles.
func (p *Page) Overflow() uint32 {
	return binary.BigEndian.Uint32(p.buf[pageOverflowOffset:])
}

func (p *Page) SetOverflow(id uint32) {
	binary.BigEndian.PutUint32(p.buf[pageOverflowOffset:], id)
}

func (p *Page) IsBranch() bool   { return p.Flags()&FlagBranch != 0 }
func (p *Page) IsLeaf() bool     { return p.Flags()&FlagLeaf != 0 }
func (p *Page) IsMeta() bool     { return p.Flags()&FlagMeta != 0 }
func (p *Page) IsFreelist() bool { return p.Flags()&FlagFreelist != 0 }
func (p *Page) IsOverflow() bool { return p.Flags()&FlagOverflow != 0 }

// Element is a handle over one directory slot and its payload.
type Element struct {
	page   *Page
	offset int
}

// Element returns a handle for the i-th directory entry, or nil if i is out
// of range.
func (p *Page) Element(i int) *Element {
	if i < 0 || i >= p.Count() {
		return nil
	}
	offset := PageHeaderSize + i*ElementSize
	if offset+ElementSize > len(p.buf) {
		return nil
	}
	return &Element{page: p, offset: offset}
}

func (e *Element) pos() int {
	return int(binary.BigEndian.Uint32(e.page.buf[e.offset+elemPosOffset:]))
}

func (e *Element) setPos(pos int) {
	binary.BigEndian.PutUint32(e.page.buf[e.offset+elemPosOffset:], uint32(pos))
}

func (e *Element) Flags() uint32 {
	return binary.BigEndian.Uint32(e.page.buf[e.offset+elemFlagsOffset:])
}

func (e *Element) setFlags(f uint32) {
	binary.BigEndian.PutUint32(e.page.buf[e.offset+elemFlagsOffset:], f)
}

func (e *Element) KeySize() int {
	return int(binary.BigEndian.Uint32(e.page.buf[e.offset+elemKSizeOffset:]))
}

func (e *Element) setKeySize(n int) {
	binary.BigEndian.PutUint32(e.page.buf[e.offset+elemKSizeOffset:], uint32(n))
}

func (e *Element) ValueSize() int {
	return int(binary.BigEndian.Uint32(e.page.buf[e.offset+elemVSizeOffset:]))
}

func (e *Element) setValueSize(n int) {
	binary.BigEndian.PutUint32(e.page.buf[e.offset+elemVSizeOffset:], uint32(n))
}

func (e *Element) HasOverflow() bool {
	return e.Flags()&elemFlagOverflow != 0
}

// Key returns the key bytes for this element.
func (e *Element) Key() []byte {
	pos := e.pos()
	n := e.KeySize()
	return e.page.buf[pos : pos+n]
}

// Value returns the value bytes for this element: either the inline value
// or, when HasOverflow is set, the 8-byte overflow chain head id.
func (e *Element) Value() []byte {
	pos := e.pos()
	vs := e.ValueSize()
	start := pos - vs
	return e.page.buf[start : start+vs]
}

// OverflowPageID decodes Value() as a big-endian page id. Only meaningful
// when HasOverflow is true.
func (e *Element) OverflowPageID() uint64 {
	v := e.Value()
	var buf [8]byte
	copy(buf[:], v)
	return binary.BigEndian.Uint64(buf[:])
}

// ChildPageID decodes Value() as a big-endian page id. Only meaningful on a
// branch page, where every element's value is a child page reference.
func (e *Element) ChildPageID() uint64 {
	return e.OverflowPageID()
}

func (e *Element) setValue(value []byte, hasOverflow bool) {
	pos := e.pos()
	vs := e.ValueSize()
	start := pos - vs
	copy(e.page.buf[start:start+vs], value)
	if hasOverflow {
		e.setFlags(e.Flags() | elemFlagOverflow)
	} else {
		e.setFlags(e.Flags() &^ elemFlagOverflow)
	}
}

// UsedBytes returns the total bytes currently occupied by the header,
// directory, and payloads. header(16) + 16*count + sum(key+value) must
// never exceed Size().
func (p *Page) UsedBytes() int {
	count := p.Count()
	used := PageHeaderSize + count*ElementSize
	for i := 0; i < count; i++ {
		e := p.Element(i)
		used += e.KeySize() + e.ValueSize()
	}
	return used
}

// FreeSpace returns the bytes unused between the end of the directory and
// the lowest payload byte currently in use.
func (p *Page) FreeSpace() int {
	return p.lowestPayloadOffset() - p.directoryEnd()
}

// directoryEnd returns the byte offset just past the last directory slot.
func (p *Page) directoryEnd() int {
	return PageHeaderSize + p.Count()*ElementSize
}

// lowestPayloadOffset returns the lowest (smallest) byte offset any existing
// payload occupies, or the page size if there are no elements yet.
func (p *Page) lowestPayloadOffset() int {
	count := p.Count()
	lowest := p.Size()
	for i := 0; i < count; i++ {
		e := p.Element(i)
		start := e.pos() - e.ValueSize()
		if start < lowest {
			lowest = start
		}
	}
	return lowest
}

func unsignedCompare(a, b []byte) int {
	la, lb := len(a), len(b)
	n := la
	if lb < n {
		n = lb
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	default:
		return 0
	}
}

// search finds the index of key if present (found=true), otherwise the
// index at which it should be inserted to keep the directory sorted.
func (p *Page) search(key []byte) (index int, found bool) {
	count := p.Count()
	lo, hi := 0, count-1
	for lo <= hi {
		mid := (lo + hi) / 2
		cmp := unsignedCompare(key, p.Element(mid).Key())
		switch {
		case cmp < 0:
			hi = mid - 1
		case cmp > 0:
			lo = mid + 1
		default:
			return mid, true
		}
	}
	return lo, false
}

// PutElement inserts or updates (key, value). hasOverflow marks value as an
// 8-byte overflow chain head reference rather than an inline value. It
// returns false, without mutating the page, when there isn't room or when
// an existing entry for key would need to change length (unsupported; the
// caller must delete and re-insert instead). A zero-length key is rejected
// on a LEAF page (real keys are never empty) but accepted on a BRANCH page,
// where it is the reserved separator for a child-0 slot that must accept
// every key below the next separator.
func (p *Page) PutElement(key, value []byte, hasOverflow bool) bool {
	if len(key) == 0 && !p.IsBranch() {
		return false
	}
	idx, found := p.search(key)
	if found {
		existing := p.Element(idx)
		if existing.ValueSize() != len(value) {
			return false
		}
		existing.setValue(value, hasOverflow)
		return true
	}

	needed := ElementSize + len(key) + len(value) + putElementSafetyMargin
	if needed > p.freeSpaceForInsert() {
		return false
	}

	p.shiftDirectoryRight(idx)

	lowest := p.lowestPayloadOffset()
	keyPos := lowest - len(key)
	valuePos := keyPos - len(value)

	copy(p.buf[keyPos:keyPos+len(key)], key)
	copy(p.buf[valuePos:valuePos+len(value)], value)

	e := &Element{page: p, offset: PageHeaderSize + idx*ElementSize}
	e.setPos(keyPos)
	e.setKeySize(len(key))
	e.setValueSize(len(value))
	var flags uint32
	if hasOverflow {
		flags = elemFlagOverflow
	}
	e.setFlags(flags)

	p.setCount(p.Count() + 1)
	return true
}

// freeSpaceForInsert returns the bytes available for a brand-new element
// (one more directory slot plus its key/value payload).
func (p *Page) freeSpaceForInsert() int {
	return p.lowestPayloadOffset() - (p.directoryEnd() + ElementSize)
}

func (p *Page) shiftDirectoryRight(at int) {
	count := p.Count()
	if at >= count {
		return
	}
	src := PageHeaderSize + at*ElementSize
	dst := src + ElementSize
	length := (count - at) * ElementSize
	copy(p.buf[dst:dst+length], p.buf[src:src+length])
}

// RemoveElement deletes the i-th entry, compacting the directory. It does
// not reclaim payload bytes; callers that delete should rebuild the page
// from its remaining elements if they want payload space back (see
// BTreeEngine.Delete).
func (p *Page) RemoveElement(i int) {
	count := p.Count()
	if i < 0 || i >= count {
		return
	}
	src := PageHeaderSize + (i+1)*ElementSize
	dst := PageHeaderSize + i*ElementSize
	length := (count - i - 1) * ElementSize
	copy(p.buf[dst:dst+length], p.buf[src:src+length])
	p.setCount(count - 1)
}

// Reset clears the directory and count, leaving flags and header ids alone.
func (p *Page) Reset() {
	p.setCount(0)
}

func (p *Page) String() string {
	return fmt.Sprintf("Page{id=%d flags=%v count=%d}", p.ID(), p.Flags(), p.Count())
}
