package mem

import "encoding/binary"

// Fault enumerates the memory-level guest faults the façade can raise.
// The embedder wires these to its exception dispatcher via
// SetFaultHandler; Memory itself has no notion of syscalls or CPUs.
type Fault uint8

const (
	FaultProtection Fault = iota
	FaultMisaligned
)

// FaultHandler is invoked synchronously when a fault occurs. The
// triggering address is supplied for diagnostics.
type FaultHandler func(fault Fault, addr uint32)

// Unsigned is the set of widths the typed accessors support.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32
}

// Memory is the typed, alignment-sensitive façade over the page store.
// It caches the most recently touched read and write pages to skip the
// map lookup on sequential same-page accesses, holds a symbol cache,
// and an exit address used to detect guest return-to-halt.
type Memory struct {
	store *pageStore

	rdPageno uint32
	rdPage   *Page
	wrPageno uint32
	wrPage   *Page
	rdValid  bool
	wrValid  bool

	// AlignmentCheck, when true, raises FaultMisaligned on any access
	// whose address is not naturally aligned to the access width. Off
	// by default: the guest is trusted for natural alignment, and
	// multi-byte accesses that straddle a page boundary are serviced by
	// splitting across the two pages (see readSplit/writeSplit).
	AlignmentCheck bool

	// TrapsEnabled gates trap dispatch on read/write. Traps are always
	// installed via SetTrap regardless of this flag; the flag exists so
	// an embedder can disable MMIO interception wholesale (e.g. while
	// priming memory at load time) without tearing down traps.
	TrapsEnabled bool

	onFault FaultHandler

	symbols     map[string]uint32
	resolver    SymbolResolver
	exitAddress uint32

	initial map[uint32]PageImage
}

// SymbolResolver resolves a guest symbol name to an address, typically
// backed by the loader's ELF symbol table. Returns (0, false) on miss.
type SymbolResolver interface {
	ResolveSymbol(name string) (uint32, bool)
}

// NewMemory creates an empty memory façade with the default page-fault
// handler (allocate a fresh zero page with default attributes).
func NewMemory() *Memory {
	return &Memory{
		store:   newPageStore(nil),
		symbols: make(map[string]uint32),
	}
}

// NewMemoryWithFaultHandler creates a Memory whose page-fault handler is
// onFault; passing nil selects the default (zero-fill, default attrs).
func NewMemoryWithFaultHandler(onFault PageFaultHandler) *Memory {
	return &Memory{
		store:   newPageStore(onFault),
		symbols: make(map[string]uint32),
	}
}

// SetFaultHandler wires the callback invoked on protection and
// misaligned-access faults.
func (m *Memory) SetFaultHandler(h FaultHandler) { m.onFault = h }

// SetSymbolResolver installs the host symbol resolver (e.g. the ELF
// loader's symbol table) consulted on ResolveAddress cache misses.
func (m *Memory) SetSymbolResolver(r SymbolResolver) { m.resolver = r }

// ExitAddress returns the configured exit address.
func (m *Memory) ExitAddress() uint32 { return m.exitAddress }

// SetExitAddress configures the address whose execution halts the
// simulate loop (typically the return address pushed before main).
func (m *Memory) SetExitAddress(addr uint32) { m.exitAddress = addr }

func (m *Memory) invalidateRead(pageno uint32, page *Page) {
	if m.rdValid && m.rdPageno == pageno {
		m.rdPage = page
	}
}

func (m *Memory) protectionFault(addr uint32) {
	if m.onFault != nil {
		m.onFault(FaultProtection, addr)
	}
}

func (m *Memory) misalignedFault(addr uint32) {
	if m.onFault != nil {
		m.onFault(FaultMisaligned, addr)
	}
}

func sizeOf[T Unsigned]() uint32 {
	var v T
	switch any(v).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	default:
		return 4
	}
}

func loadAligned[T Unsigned](buf []byte, off uint32) T {
	switch sizeOf[T]() {
	case 1:
		return T(buf[off])
	case 2:
		return T(binary.LittleEndian.Uint16(buf[off : off+2]))
	default:
		return T(binary.LittleEndian.Uint32(buf[off : off+4]))
	}
}

func storeAligned[T Unsigned](buf []byte, off uint32, v T) {
	switch sizeOf[T]() {
	case 1:
		buf[off] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(v))
	default:
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v))
	}
}

// readT loads a T-sized value at addr. Ports Memory<W>::read from
// memory_inline.hpp: update the read-page cache only when the page
// number changes, dispatch traps, else perform an aligned load on a
// readable page, else protection-fault and return zero.
func readT[T Unsigned](m *Memory, addr uint32) T {
	size := sizeOf[T]()
	if m.AlignmentCheck && addr&(size-1) != 0 {
		m.misalignedFault(addr)
		return 0
	}
	offset := addr & (PageSize - 1)
	if offset+size > PageSize {
		return readSplit[T](m, addr)
	}
	pageno := addr >> PageShift
	if !m.rdValid || m.rdPageno != pageno {
		m.rdPageno = pageno
		m.rdPage = m.store.getPage(pageno)
		m.rdValid = true
	}
	page := m.rdPage

	if m.TrapsEnabled && page.HasTrap() {
		return T(page.Trap(offset, TrapDirection(size)|TrapRead, 0))
	}
	if page.Attr.Read {
		return loadAligned[T](page.data[:], offset)
	}
	m.protectionFault(addr)
	return 0
}

// writeT stores value at addr. Ports Memory<W>::write: writes always go
// through createPage, since a write must materialize a private page
// before mutating it (the COW sentinel is never written through).
func writeT[T Unsigned](m *Memory, addr uint32, value T) {
	size := sizeOf[T]()
	if m.AlignmentCheck && addr&(size-1) != 0 {
		m.misalignedFault(addr)
		return
	}
	offset := addr & (PageSize - 1)
	if offset+size > PageSize {
		writeSplit[T](m, addr, value)
		return
	}
	pageno := addr >> PageShift
	if !m.wrValid || m.wrPageno != pageno {
		page, err := m.store.createPage(pageno)
		if err != nil {
			m.protectionFault(addr)
			return
		}
		m.wrPageno = pageno
		m.wrPage = page
		m.wrValid = true
		m.invalidateRead(pageno, page)
	}
	page := m.wrPage

	if m.TrapsEnabled && page.HasTrap() {
		page.Trap(offset, TrapDirection(size)|TrapWrite, uint32(value))
		return
	}
	if page.Attr.Write {
		storeAligned[T](page.data[:], offset, value)
		return
	}
	m.protectionFault(addr)
}

// readSplit services a read whose width straddles a page boundary by
// byte-copying through Memcpy-style page walking, then decoding.
func readSplit[T Unsigned](m *Memory, addr uint32) T {
	size := sizeOf[T]()
	var buf [4]byte
	m.MemcpyOut(buf[:size], addr)
	return loadAligned[T](buf[:], 0)
}

func writeSplit[T Unsigned](m *Memory, addr uint32, value T) {
	size := sizeOf[T]()
	var buf [4]byte
	storeAligned[T](buf[:], 0, value)
	m.Memcpy(addr, buf[:size])
}

// ReadU8/ReadU16/ReadU32 and WriteU8/WriteU16/WriteU32 are the public,
// non-generic entry points mirroring the teacher's typed accessor
// style; they simply instantiate the generic core above.
func (m *Memory) ReadU8(addr uint32) uint8    { return readT[uint8](m, addr) }
func (m *Memory) ReadU16(addr uint32) uint16  { return readT[uint16](m, addr) }
func (m *Memory) ReadU32(addr uint32) uint32  { return readT[uint32](m, addr) }
func (m *Memory) WriteU8(addr uint32, v uint8)   { writeT[uint8](m, addr, v) }
func (m *Memory) WriteU16(addr uint32, v uint16) { writeT[uint16](m, addr, v) }
func (m *Memory) WriteU32(addr uint32, v uint32) { writeT[uint32](m, addr, v) }

// GetPageAttr returns the attributes of the page covering addr.
func (m *Memory) GetPageAttr(addr uint32) Attrs { return m.store.getPageAttr(addr) }

// SetPageAttr applies attrs to every page covering [dst, dst+length).
// Touched pages are dropped from the read/write caches: a materialized
// page's *Page pointer can change (attrs.IsDefault false path always
// calls createPage, which may allocate a new object), and even an
// in-place Attr update on an already-cached page must be picked up by
// readT/writeT's permission checks on the very next access — a stale
// cached pointer from before a permission downgrade must not let a
// fault slip through.
func (m *Memory) SetPageAttr(dst uint32, length int, attrs Attrs) error {
	touched, err := m.store.setPageAttr(dst, length, attrs)
	for _, pageno := range touched {
		if m.rdValid && m.rdPageno == pageno {
			m.rdValid = false
		}
		if m.wrValid && m.wrPageno == pageno {
			m.wrValid = false
		}
	}
	return err
}

// SetTrap installs an MMIO trap callback on the page containing addr.
func (m *Memory) SetTrap(addr uint32, cb TrapFunc) error {
	return m.store.setTrap(addr>>PageShift, cb)
}

// FreePages erases every non-COW page covering [dst, dst+length) and
// invalidates any cached pointer the erasure might have stranded.
func (m *Memory) FreePages(dst uint32, length int) {
	for length > 0 {
		size := PageSize - int(dst&(PageSize-1))
		if size > length {
			size = length
		}
		pageno := dst >> PageShift
		m.store.erasePage(pageno)
		if m.rdValid && m.rdPageno == pageno {
			m.rdValid = false
		}
		if m.wrValid && m.wrPageno == pageno {
			m.wrValid = false
		}
		dst += uint32(size)
		length -= size
	}
}

// SealInitial records the current page store contents as the initial
// image. Reset returns memory to this state rather than to an empty
// store; a loader calls it once, after priming segments.
func (m *Memory) SealInitial() {
	m.initial = m.DirtyPages()
}

// Reset discards all pages and caches. When an initial image has been
// sealed, the page store is rebuilt from it; otherwise the façade
// returns to its empty post-construction state.
func (m *Memory) Reset() {
	m.RestoreDirtyPages(m.initial)
	m.symbols = make(map[string]uint32)
}

// PageImage is a copyable snapshot of one materialized page: its byte
// contents and attributes. Trap callbacks are host functions and are
// not captured; an embedder reinstalls them after a restore.
type PageImage struct {
	Data []byte
	Attr Attrs
}

// DirtyPages snapshots every materialized (non-COW) page, keyed by page
// number, for a checkpoint. Any page never written or attribute-set is
// omitted: it reconstructs as the all-zero default on RestoreDirtyPages.
func (m *Memory) DirtyPages() map[uint32]PageImage {
	out := make(map[uint32]PageImage, len(m.store.pages))
	for pageno, page := range m.store.pages {
		buf := make([]byte, PageSize)
		copy(buf, page.data[:])
		out[pageno] = PageImage{Data: buf, Attr: page.Attr}
	}
	return out
}

// RestoreDirtyPages replaces the page store's contents with pages,
// discarding whatever was previously materialized and invalidating the
// read/write caches.
func (m *Memory) RestoreDirtyPages(pages map[uint32]PageImage) {
	m.store = newPageStore(m.store.onFault)
	for pageno, img := range pages {
		p := newPage()
		copy(p.data[:], img.Data)
		p.Attr = img.Attr
		m.store.pages[pageno] = p
	}
	m.rdValid, m.wrValid = false, false
}

// SymbolCache returns a copy of the resolved-symbol cache.
func (m *Memory) SymbolCache() map[string]uint32 {
	out := make(map[string]uint32, len(m.symbols))
	for name, addr := range m.symbols {
		out[name] = addr
	}
	return out
}

// RestoreSymbolCache replaces the resolved-symbol cache with symbols.
func (m *Memory) RestoreSymbolCache(symbols map[string]uint32) {
	m.symbols = make(map[string]uint32, len(symbols))
	for name, addr := range symbols {
		m.symbols[name] = addr
	}
}
