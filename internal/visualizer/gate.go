package visualizer

// Gate defers an item's activation until it is near the viewport, or
// opens at once for the active track. It fires at most once.
type Gate struct {
	viewport   *Viewport
	container  *Container
	onOpen     func()
	disconnect func()
	open       bool
	closed     bool
}

// NewGate creates a gate that calls onOpen the first time it opens
func NewGate(vp *Viewport, c *Container, onOpen func()) *Gate {
	return &Gate{viewport: vp, container: c, onOpen: onOpen}
}

// Start opens the gate immediately when active, otherwise begins observing
func (g *Gate) Start(active bool) {
	if g.open || g.closed {
		return
	}
	if active || g.viewport == nil {
		g.fire()
		return
	}
	disconnect := g.viewport.Observe(g.container, g.fire)
	if g.open {
		disconnect()
		return
	}
	g.disconnect = disconnect
}

// SetActive opens the gate without waiting for visibility
func (g *Gate) SetActive(active bool) {
	if active {
		g.fire()
	}
}

// Open reports whether the gate has fired
func (g *Gate) Open() bool { return g.open }

// Close cancels a pending observation. A closed gate never fires.
func (g *Gate) Close() {
	g.closed = true
	g.stopObserving()
}

func (g *Gate) fire() {
	if g.open || g.closed {
		return
	}
	g.open = true
	g.stopObserving()
	g.onOpen()
}

func (g *Gate) stopObserving() {
	if g.disconnect != nil {
		g.disconnect()
		g.disconnect = nil
	}
}
