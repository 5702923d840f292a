// Package mem implements the guest's demand-paged address space: a
// sparse page store and a typed, alignment-sensitive memory façade.
package mem

// PageShift is log2 of the page size; PageSize is 1 << PageShift.
const (
	PageShift = 12
	PageSize  = 1 << PageShift
)

// Attrs describes the permissions and bookkeeping flags carried by a
// page. IsDefault means "default RWX on a page that is still backed by
// the COW sentinel" — it lets set_page_attr skip materializing pages
// whose attributes would be unchanged from the COW default.
type Attrs struct {
	Read      bool
	Write     bool
	Exec      bool
	IsCOW     bool
	IsDefault bool
}

// DefaultAttrs is the permission set newly-faulted-in pages receive.
func DefaultAttrs() Attrs {
	return Attrs{Read: true, Write: true, Exec: true, IsDefault: true}
}

// TrapDirection tags a trap callback invocation as a read or a write,
// OR'd together with the access size in bytes.
type TrapDirection uint32

const (
	TrapRead  TrapDirection = 0x1000
	TrapWrite TrapDirection = 0x2000
)

// TrapFunc is invoked on a trapped page instead of a normal load/store.
// offset is the page-relative address, sizeAndDir is sizeof(T) ORed
// with TrapRead or TrapWrite, and value is the stored value on writes
// (zero on reads). Its return value replaces the loaded value on reads
// and is ignored on writes.
type TrapFunc func(offset uint32, sizeAndDir TrapDirection, value uint32) uint32

// Page is a fixed-size aligned block of guest memory.
type Page struct {
	data  [PageSize]byte
	Attr  Attrs
	trap  TrapFunc
}

// HasTrap reports whether this page has an MMIO trap installed.
func (p *Page) HasTrap() bool { return p.trap != nil }

// Trap invokes the page's trap callback. Callers must check HasTrap first.
func (p *Page) Trap(offset uint32, sizeAndDir TrapDirection, value uint32) uint32 {
	return p.trap(offset, sizeAndDir, value)
}

// SetTrap installs a trap callback on the page.
func (p *Page) SetTrap(cb TrapFunc) { p.trap = cb }

// Data returns the page's raw byte buffer.
func (p *Page) Data() *[PageSize]byte { return &p.data }

// cowPage is the process-wide singleton returned by every store miss.
// It is all-zero, read-only, and must never be mutated; writes always
// go through createPage, which materializes a private page first.
var cowPage = &Page{
	Attr: Attrs{Read: true, Write: false, Exec: true, IsCOW: true, IsDefault: true},
}

func newPage() *Page {
	return &Page{Attr: DefaultAttrs()}
}
