package storage

// PageGuard is a scoped handle over a pinned page. Dropping the guard unpins
// the page exactly once with whatever dirtiness was recorded through it;
// further drops are no-ops. Guards hold exclusive ownership of their pin and
// must not be copied.
type PageGuard struct {
	bp    *BufferPool
	page  *Page
	dirty bool
}

// NewPageGuarded allocates a fresh page and returns it wrapped in a guard.
func (bp *BufferPool) NewPageGuarded() (*PageGuard, error) {
	page, err := bp.NewPage()
	if err != nil {
		return nil, err
	}
	return &PageGuard{bp: bp, page: page}, nil
}

// FetchPageBasic fetches a page wrapped in a guard.
func (bp *BufferPool) FetchPageBasic(pageID PageID) (*PageGuard, error) {
	page, err := bp.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	return &PageGuard{bp: bp, page: page}, nil
}

// ID returns the guarded page's id.
func (g *PageGuard) ID() PageID { return g.page.ID() }

// Data returns the guarded page's buffer.
func (g *PageGuard) Data() []byte { return g.page.Data() }

// MarkDirty records that the caller modified the page; the dirtiness is
// reported to the pool when the guard is dropped.
func (g *PageGuard) MarkDirty() { g.dirty = true }

// Drop releases the pin. Safe to defer and to call more than once.
func (g *PageGuard) Drop() {
	if g.bp == nil {
		return
	}
	bp, page, dirty := g.bp, g.page, g.dirty
	g.bp = nil
	g.page = nil
	bp.UnpinPage(page.ID(), dirty)
}

// UpgradeRead latches the guarded page for reading and converts this guard
// into a ReadPageGuard. The original guard becomes inert.
func (g *PageGuard) UpgradeRead() *ReadPageGuard {
	g.page.RLatch()
	rg := &ReadPageGuard{guard: PageGuard{bp: g.bp, page: g.page}}
	g.bp = nil
	g.page = nil
	return rg
}

// UpgradeWrite latches the guarded page for writing and converts this guard
// into a WritePageGuard. The original guard becomes inert.
func (g *PageGuard) UpgradeWrite() *WritePageGuard {
	g.page.WLatch()
	wg := &WritePageGuard{guard: PageGuard{bp: g.bp, page: g.page}}
	g.bp = nil
	g.page = nil
	return wg
}

// ReadPageGuard is a PageGuard that additionally holds the frame's reader
// latch. Dropping releases the latch, then unpins clean.
type ReadPageGuard struct {
	guard PageGuard
}

// FetchPageRead fetches a page, pins it, and acquires its reader latch.
func (bp *BufferPool) FetchPageRead(pageID PageID) (*ReadPageGuard, error) {
	page, err := bp.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	page.RLatch()
	return &ReadPageGuard{guard: PageGuard{bp: bp, page: page}}, nil
}

// ID returns the guarded page's id.
func (g *ReadPageGuard) ID() PageID { return g.guard.page.ID() }

// Data returns the guarded page's buffer for reading.
func (g *ReadPageGuard) Data() []byte { return g.guard.page.Data() }

// Drop releases the reader latch and the pin. Safe to defer and to call more
// than once.
func (g *ReadPageGuard) Drop() {
	if g.guard.bp == nil {
		return
	}
	g.guard.page.RUnlatch()
	g.guard.Drop()
}

// WritePageGuard is a PageGuard that additionally holds the frame's writer
// latch. Dropping releases the latch, then unpins dirty.
type WritePageGuard struct {
	guard PageGuard
}

// FetchPageWrite fetches a page, pins it, and acquires its writer latch.
func (bp *BufferPool) FetchPageWrite(pageID PageID) (*WritePageGuard, error) {
	page, err := bp.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	page.WLatch()
	return &WritePageGuard{guard: PageGuard{bp: bp, page: page}}, nil
}

// NewPageGuardedWrite allocates a fresh page and returns it write-latched.
func (bp *BufferPool) NewPageGuardedWrite() (*WritePageGuard, error) {
	page, err := bp.NewPage()
	if err != nil {
		return nil, err
	}
	page.WLatch()
	return &WritePageGuard{guard: PageGuard{bp: bp, page: page}}, nil
}

// ID returns the guarded page's id.
func (g *WritePageGuard) ID() PageID { return g.guard.page.ID() }

// Data returns the guarded page's buffer for writing.
func (g *WritePageGuard) Data() []byte { return g.guard.page.Data() }

// Drop releases the writer latch and the pin, reporting the page dirty.
// Safe to defer and to call more than once.
func (g *WritePageGuard) Drop() {
	if g.guard.bp == nil {
		return
	}
	g.guard.dirty = true
	g.guard.page.WUnlatch()
	g.guard.Drop()
}
