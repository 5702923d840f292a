package mem

import "errors"

// ErrOutOfMemory is reported by the page-fault handler when it cannot
// materialize a new page.
var ErrOutOfMemory = errors.New("mem: out of memory allocating guest page")

// PageFaultHandler is invoked by createPage when a page number has no
// stored page yet. The default handler allocates a fresh zero-filled
// page with default attributes.
type PageFaultHandler func(store *pageStore, pageno uint32) (*Page, error)

func defaultPageFaultHandler(store *pageStore, pageno uint32) (*Page, error) {
	p := newPage()
	store.pages[pageno] = p
	return p, nil
}

// pageStore is a sparse mapping from page number (address >> PageShift)
// to a Page. Pages are created lazily on first write or explicit
// attribute set; lookups miss to the shared COW page.
type pageStore struct {
	pages   map[uint32]*Page
	onFault PageFaultHandler
}

func newPageStore(onFault PageFaultHandler) *pageStore {
	if onFault == nil {
		onFault = defaultPageFaultHandler
	}
	return &pageStore{pages: make(map[uint32]*Page), onFault: onFault}
}

// getPage returns the stored page if present, else the COW sentinel.
// Pure; never allocates.
func (s *pageStore) getPage(pageno uint32) *Page {
	if p, ok := s.pages[pageno]; ok {
		return p
	}
	return cowPage
}

// createPage returns the stored page if present, otherwise invokes the
// page-fault handler to materialize one.
func (s *pageStore) createPage(pageno uint32) (*Page, error) {
	if p, ok := s.pages[pageno]; ok {
		return p, nil
	}
	return s.onFault(s, pageno)
}

// erasePage removes a non-COW page from the store; COW pages (i.e. a
// miss) are silently ignored.
func (s *pageStore) erasePage(pageno uint32) {
	if p, ok := s.pages[pageno]; ok && !p.Attr.IsCOW {
		delete(s.pages, pageno)
	}
}

// setPageAttr walks [dst, dst+len) page by page and applies attrs. When
// attrs are the default set, pages that are still COW are left
// untouched — this preserves the invariant that unused regions cost no
// storage. It returns every page number it actually materialized or
// modified, so the caller can invalidate any cached pointer into them.
func (s *pageStore) setPageAttr(dst uint32, length int, attrs Attrs) ([]uint32, error) {
	var touched []uint32
	for length > 0 {
		size := PageSize - int(dst&(PageSize-1))
		if size > length {
			size = length
		}
		pageno := dst >> PageShift
		if attrs.IsDefault {
			if page := s.getPage(pageno); !page.Attr.IsCOW {
				page.Attr = attrs
				touched = append(touched, pageno)
			}
		} else {
			page, err := s.createPage(pageno)
			if err != nil {
				return touched, err
			}
			page.Attr = attrs
			touched = append(touched, pageno)
		}
		dst += uint32(size)
		length -= size
	}
	return touched, nil
}

// getPageAttr returns the attributes of the page covering src (the COW
// defaults if the page has never been materialized).
func (s *pageStore) getPageAttr(src uint32) Attrs {
	return s.getPage(src >> PageShift).Attr
}

// setTrap marks the page at pageno as trapped, materializing it first.
func (s *pageStore) setTrap(pageno uint32, cb TrapFunc) error {
	page, err := s.createPage(pageno)
	if err != nil {
		return err
	}
	page.SetTrap(cb)
	return nil
}
