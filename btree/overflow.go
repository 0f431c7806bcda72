package btree

import (
	"encoding/binary"
	"fmt"

	"jparque/storage"
)

// maxOverflowBytes bounds how much a single chain may grow to, defensively,
// so a corrupted or cyclic chain cannot be read into unbounded memory.
const maxOverflowBytes = 50 * 1024 * 1024

// overflowPayloadCap is the number of payload bytes an overflow page can
// hold: page size minus the fixed header.
func overflowPayloadCap(pageSize int) int {
	return pageSize - PageHeaderSize
}

// writeOverflowChain splits data across the minimum number of OVERFLOW
// pages needed to hold it, linking each to the next via the header's
// overflow field (0 at the end), and returns the head page id.
func writeOverflowChain(pm *PageManager, data []byte) (uint64, error) {
	chunkCap := overflowPayloadCap(pm.PageSize())
	if chunkCap <= 0 {
		return 0, fmt.Errorf("%w: page size too small for overflow payloads", storage.ErrCapacityExceeded)
	}

	var ids []uint64
	for offset := 0; offset < len(data) || len(ids) == 0; offset += chunkCap {
		id, err := pm.AllocatePage()
		if err != nil {
			freeOverflowChainByIDs(pm, ids)
			return 0, fmt.Errorf("allocate overflow page: %w", err)
		}
		ids = append(ids, id)
		if offset+chunkCap >= len(data) {
			break
		}
	}

	for i, id := range ids {
		page, err := pm.ReadPage(id)
		if err != nil {
			freeOverflowChainByIDs(pm, ids)
			return 0, fmt.Errorf("read freshly allocated overflow page %d: %w", id, err)
		}
		page.SetID(id)
		page.SetFlags(FlagOverflow)

		start := i * chunkCap
		end := start + chunkCap
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]
		copy(page.buf[PageHeaderSize:], chunk)
		page.setCount(len(chunk))

		if i+1 < len(ids) {
			page.SetOverflow(uint32(ids[i+1]))
		} else {
			page.SetOverflow(0)
		}

		if err := pm.WritePage(page); err != nil {
			freeOverflowChainByIDs(pm, ids)
			return 0, fmt.Errorf("write overflow page %d: %w", id, err)
		}
	}

	return ids[0], nil
}

// readOverflowChain concatenates the payload bytes of every page in the
// chain starting at head, following successor links until 0, detecting
// cycles and enforcing maxOverflowBytes.
func readOverflowChain(pm *PageManager, head uint64) ([]byte, error) {
	visited := make(map[uint64]bool)
	var out []byte

	id := head
	for id != 0 {
		if visited[id] {
			return nil, fmt.Errorf("%w: cycle detected in overflow chain at page %d", storage.ErrCorruption, id)
		}
		visited[id] = true

		page, err := pm.ReadPage(id)
		if err != nil {
			return nil, fmt.Errorf("read overflow page %d: %w", id, err)
		}
		if !page.IsOverflow() {
			return nil, fmt.Errorf("%w: page %d in overflow chain is not flagged OVERFLOW", storage.ErrCorruption, id)
		}

		n := page.Count()
		if n < 0 || PageHeaderSize+n > page.Size() {
			return nil, fmt.Errorf("%w: overflow page %d reports invalid payload length %d", storage.ErrCorruption, id, n)
		}
		if len(out)+n > maxOverflowBytes {
			return nil, fmt.Errorf("%w: overflow chain exceeds %d bytes", storage.ErrCapacityExceeded, maxOverflowBytes)
		}

		out = append(out, page.buf[PageHeaderSize:PageHeaderSize+n]...)
		id = uint64(page.Overflow())
	}

	return out, nil
}

// freeOverflowChain marks every page in the chain starting at head as
// FREELIST. No on-disk freelist index is maintained; pages are simply
// relabeled and otherwise leaked, per spec.
func freeOverflowChain(pm *PageManager, head uint64) error {
	visited := make(map[uint64]bool)
	id := head
	for id != 0 {
		if visited[id] {
			return fmt.Errorf("%w: cycle detected while freeing overflow chain at page %d", storage.ErrCorruption, id)
		}
		visited[id] = true

		page, err := pm.ReadPage(id)
		if err != nil {
			return fmt.Errorf("read overflow page %d: %w", id, err)
		}
		next := uint64(page.Overflow())
		page.SetFlags(FlagFreelist)
		if err := pm.WritePage(page); err != nil {
			return fmt.Errorf("write freelist page %d: %w", id, err)
		}
		id = next
	}
	return nil
}

// freeOverflowChainByIDs is used to unwind a partially allocated chain when
// an allocation or write fails midway through writeOverflowChain.
func freeOverflowChainByIDs(pm *PageManager, ids []uint64) {
	for _, id := range ids {
		page, err := pm.ReadPage(id)
		if err != nil {
			continue
		}
		page.SetFlags(FlagFreelist)
		_ = pm.WritePage(page)
	}
}

// encodePageID renders a page id as the 8-byte big-endian reference stored
// in a slot's value region: a leaf's overflow chain head when has_overflow
// is set, or a branch's child page id.
func encodePageID(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

// decodePageID is the inverse of encodePageID.
func decodePageID(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.BigEndian.Uint64(buf[:])
}
