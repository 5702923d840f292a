package mem

// This file ports the page-by-page bulk operations from
// memory_inline.hpp (memset/memcpy/memcpy_out/memview/memstring). Block
// ops walk pages directly through createPage/getPage and bypass traps
// and the read/write caches entirely — they are host-side conveniences
// for loaders and syscalls, not guest instruction semantics.

// Memset fills [dst, dst+length) with value, materializing pages as
// it goes.
func (m *Memory) Memset(dst uint32, value byte, length int) error {
	for length > 0 {
		pageOff := dst & (PageSize - 1)
		size := PageSize - int(pageOff)
		if size > length {
			size = length
		}
		page, err := m.store.createPage(dst >> PageShift)
		if err != nil {
			return err
		}
		buf := page.Data()
		for i := 0; i < size; i++ {
			buf[int(pageOff)+i] = value
		}
		dst += uint32(size)
		length -= size
	}
	return nil
}

// Memcpy copies src into guest memory starting at dst, materializing
// destination pages as it goes.
func (m *Memory) Memcpy(dst uint32, src []byte) error {
	length := len(src)
	off := 0
	for length > 0 {
		pageOff := dst & (PageSize - 1)
		size := PageSize - int(pageOff)
		if size > length {
			size = length
		}
		page, err := m.store.createPage(dst >> PageShift)
		if err != nil {
			return err
		}
		buf := page.Data()
		copy(buf[int(pageOff):int(pageOff)+size], src[off:off+size])
		dst += uint32(size)
		off += size
		length -= size
	}
	return nil
}

// MemcpyOut copies length(dst) bytes of guest memory starting at src
// into dst, a host-side buffer. Pages that have never been
// materialized read as zero via the COW sentinel.
func (m *Memory) MemcpyOut(dst []byte, src uint32) {
	length := len(dst)
	off := 0
	for length > 0 {
		pageOff := src & (PageSize - 1)
		size := PageSize - int(pageOff)
		if size > length {
			size = length
		}
		page := m.store.getPage(src >> PageShift)
		buf := page.Data()
		copy(dst[off:off+size], buf[int(pageOff):int(pageOff)+size])
		src += uint32(size)
		off += size
		length -= size
	}
}

// Memview presents length bytes of guest memory starting at src to fn.
// When the span fits within a single page, fn is called directly
// against that page's backing array — the fast path from
// memory_inline.hpp that avoids a copy. When the span straddles pages,
// Go has no stack VLA equivalent to the C++ original's on-stack buffer,
// so the slow path heap-allocates a scratch buffer, gathers the bytes
// via MemcpyOut, and calls fn against that instead.
func (m *Memory) Memview(src uint32, length int, fn func(data []byte)) {
	pageOff := src & (PageSize - 1)
	if int(pageOff)+length <= PageSize {
		page := m.store.getPage(src >> PageShift)
		buf := page.Data()
		fn(buf[int(pageOff) : int(pageOff)+length])
		return
	}
	scratch := make([]byte, length)
	m.MemcpyOut(scratch, src)
	fn(scratch)
}

// MaxStringLength is a conventional upper bound callers pass as
// Memstring's maxLen when they have no tighter limit, so a guest
// pointer that is never NUL-terminated cannot force an unbounded host
// allocation.
const MaxStringLength = 1 << 20

// Memstring reads a NUL-terminated string starting at src, stopping at
// the first NUL byte or after maxLen bytes, whichever comes first. The
// fast path scans within the first page; the slow path appends page by
// page until the NUL or the limit is reached.
func (m *Memory) Memstring(src uint32, maxLen int) string {
	pageOff := int(src & (PageSize - 1))
	page := m.store.getPage(src >> PageShift)
	buf := page.Data()
	limit := pageOff + maxLen
	if limit > PageSize {
		limit = PageSize
	}
	for i := pageOff; i < limit; i++ {
		if buf[i] == 0 {
			return string(buf[pageOff:i])
		}
	}
	if pageOff+maxLen <= PageSize {
		return string(buf[pageOff : pageOff+maxLen])
	}

	out := append([]byte(nil), buf[pageOff:]...)
	addr := src + uint32(PageSize-pageOff)
	for len(out) < maxLen {
		page := m.store.getPage(addr >> PageShift)
		buf := page.Data()
		n := PageSize
		if rem := maxLen - len(out); rem < n {
			n = rem
		}
		for i := 0; i < n; i++ {
			if buf[i] == 0 {
				return string(append(out, buf[:i]...))
			}
		}
		out = append(out, buf[:n]...)
		addr += uint32(n)
	}
	return string(out)
}
