package mem

// ResolveAddress looks up a symbol's address, consulting a small cache
// before falling back to the configured SymbolResolver. Ports
// resolve_address's cache-then-lookup-then-cache shape from
// memory_inline.hpp; the cache here is a plain map rather than the
// original's single-entry slot, since symbol lookups in practice come
// from a handful of hot names (crt entry points, exit thunks) rather
// than a sequential scan.
func (m *Memory) ResolveAddress(name string) (uint32, bool) {
	if addr, ok := m.symbols[name]; ok {
		return addr, true
	}
	if m.resolver == nil {
		return 0, false
	}
	addr, ok := m.resolver.ResolveSymbol(name)
	if ok {
		m.symbols[name] = addr
	}
	return addr, ok
}
