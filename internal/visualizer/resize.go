package visualizer

// Bucket is a responsive size class for the terminal width
type Bucket int

const (
	Compact Bucket = iota
	Regular
	Wide
)

func (b Bucket) String() string {
	return [...]string{"compact", "regular", "wide"}[b]
}

// WaveRows returns how many rows a waveform gets in this bucket
func (b Bucket) WaveRows() int {
	return int(b) + 1
}

// Breakpoints are the minimum widths of the regular and wide buckets
type Breakpoints struct {
	Regular int
	Wide    int
}

// DefaultBreakpoints returns the stock breakpoints
func DefaultBreakpoints() Breakpoints {
	return Breakpoints{Regular: 80, Wide: 140}
}

// BucketFor returns the bucket a width falls into
func (b Breakpoints) BucketFor(width int) Bucket {
	switch {
	case b.Wide > 0 && width >= b.Wide:
		return Wide
	case b.Regular > 0 && width >= b.Regular:
		return Regular
	default:
		return Compact
	}
}

// ResizeDriver keeps the engine sized to its container. Changes are applied
// on the next dispatcher turn, reading the container as it is then.
type ResizeDriver struct {
	inst    *Instance
	bucket  Bucket
	width   int
	height  int
	pending bool
}

func newResizeDriver(i *Instance) *ResizeDriver {
	return &ResizeDriver{inst: i}
}

// track records the size an engine was created with
func (d *ResizeDriver) track(width, height int) {
	d.width, d.height = width, height
	d.bucket = d.inst.shared.Breakpoints.BucketFor(width)
}

// Bucket returns the last observed size bucket
func (d *ResizeDriver) Bucket() Bucket { return d.bucket }

// Observe records the container's new size and schedules an engine resize
// when the bucket or dimensions changed.
func (d *ResizeDriver) Observe(width, height int) {
	i := d.inst
	i.container.Width, i.container.Height = width, height

	bucket := i.shared.Breakpoints.BucketFor(width)
	if bucket == d.bucket && width == d.width && height == d.height {
		return
	}
	if bucket != d.bucket {
		i.logger.Debug("size bucket changed", "from", d.bucket, "to", bucket)
	}
	d.bucket, d.width, d.height = bucket, width, height

	if i.engine == nil || d.pending {
		return
	}
	if i.shared.Dispatcher == nil {
		d.apply()
		return
	}
	d.pending = true
	i.shared.Dispatcher.Post(d.apply)
}

func (d *ResizeDriver) apply() {
	d.pending = false
	i := d.inst
	if i.state == Destroyed || i.engine == nil {
		return
	}
	i.engine.SetSize(i.container.Width, i.container.Height)
}
