package visualizer

// Container is the region of the list an item occupies, in rows. Top is
// measured from the start of the list, not the screen.
type Container struct {
	Top    int
	Width  int
	Height int
}

// ViewportConfig holds the pre-load margins in rows
type ViewportConfig struct {
	Margin      int
	SmallMargin int
	// SmallRows is the height below which SmallMargin applies
	SmallRows int
}

// DefaultViewportConfig returns the stock margins
func DefaultViewportConfig() ViewportConfig {
	return ViewportConfig{Margin: 2, SmallMargin: 6, SmallRows: 20}
}

type observation struct {
	container *Container
	fn        func()
}

// Viewport tracks the visible window of the list and notifies observers
// whose containers come within the pre-load margin. Not safe for
// concurrent use; it lives on the UI goroutine.
type Viewport struct {
	cfg       ViewportConfig
	top       int
	height    int
	nextID    int
	observers map[int]observation
}

// NewViewport creates a viewport with the given margins
func NewViewport(cfg ViewportConfig) *Viewport {
	return &Viewport{cfg: cfg, observers: make(map[int]observation)}
}

// Margin returns the pre-load margin for the current height
func (v *Viewport) Margin() int {
	if v.height < v.cfg.SmallRows {
		return max(v.cfg.SmallMargin, v.cfg.Margin)
	}
	return v.cfg.Margin
}

// Near reports whether c lies within the viewport extended by the margin
func (v *Viewport) Near(c *Container) bool {
	if v.height <= 0 {
		return false
	}
	m := v.Margin()
	return c.Top+c.Height > v.top-m && c.Top < v.top+v.height+m
}

// Observe calls fn whenever c is near the viewport: once now if it already
// is, then after every Scroll that finds it near. The returned function
// stops the observation.
func (v *Viewport) Observe(c *Container, fn func()) (disconnect func()) {
	id := v.nextID
	v.nextID++
	v.observers[id] = observation{container: c, fn: fn}
	if v.Near(c) {
		fn()
	}
	return func() { delete(v.observers, id) }
}

// Scroll moves the visible window and re-checks every observation
func (v *Viewport) Scroll(top, height int) {
	v.top, v.height = max(top, 0), max(height, 0)
	for id, obs := range v.observers {
		// An earlier callback may have disconnected this one
		if _, ok := v.observers[id]; !ok {
			continue
		}
		if v.Near(obs.container) {
			obs.fn()
		}
	}
}

// Observers returns the number of live observations
func (v *Viewport) Observers() int { return len(v.observers) }
