package visualizer

import (
	"math"

	"github.com/samber/mo"

	"github.com/mmcdole/tapedeck/internal/playback"
)

// SyncDriver mirrors the playback session into an instance's cursor while
// its track is active, and shows the saved resume point while it is not.
type SyncDriver struct {
	inst   *Instance
	active bool
	unsubs []func()

	lastTime float64
	// snapshot holds the position captured when the track stopped being
	// active. It wins over the store until the track is active again.
	snapshot mo.Option[float64]
}

// Active reports whether the driver is following the session
func (d *SyncDriver) Active() bool { return d.active }

// Refresh re-evaluates whether the instance's track is the active one and
// transitions accordingly. It waits for the instance to be ready.
func (d *SyncDriver) Refresh() {
	i := d.inst
	if i.state != Ready || i.failed {
		return
	}
	active := i.shared.Session.IsActive(i.track.ID)
	switch {
	case active && !d.active:
		d.activate()
	case !active && d.active:
		d.deactivate()
	case !active:
		d.renderInactive()
	}
}

func (d *SyncDriver) activate() {
	d.active = true
	d.snapshot = mo.None[float64]()
	d.lastTime = d.inst.shared.Positions.Get(d.inst.track.ID)

	sess := d.inst.shared.Session
	d.unsubs = append(d.unsubs,
		sess.Subscribe(playback.EventTimeUpdate, d.onTimeUpdate),
		sess.Subscribe(playback.EventDurationChange, d.onDurationChange),
	)
	if dur := sess.Duration(); dur > 0 {
		d.inst.durationLabel = dur
		d.seek(ratio(sess.CurrentTime(), dur))
	}
}

func (d *SyncDriver) deactivate() {
	// Capture before anything else touches the store
	d.snapshot = mo.Some(d.lastTime)
	d.stop()
	d.renderInactive()
}

func (d *SyncDriver) stop() {
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
	d.active = false
}

func (d *SyncDriver) renderInactive() {
	i := d.inst
	pos := d.snapshot.OrElse(i.shared.Positions.Get(i.track.ID))
	if i.engine != nil {
		if dur := i.engine.Duration(); dur > 0 {
			d.seek(ratio(pos, dur))
		}
	}
	i.currentLabel = pos
}

func (d *SyncDriver) onTimeUpdate(playback.Event) {
	i := d.inst
	if i.state == Destroyed || !d.active {
		return
	}
	sess := i.shared.Session
	if !sess.IsActive(i.track.ID) || sess.Source() != i.track.Source {
		return
	}

	t := sess.CurrentTime()
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return
	}
	i.currentLabel = t
	d.lastTime = t
	i.shared.Positions.Set(i.track.ID, t)

	if dur := sess.Duration(); dur > 0 {
		d.seek(ratio(t, dur))
	}
}

func (d *SyncDriver) onDurationChange(playback.Event) {
	i := d.inst
	if i.state == Destroyed || !d.active || !i.shared.Session.IsActive(i.track.ID) {
		return
	}
	if dur := i.shared.Session.Duration(); dur > 0 && !math.IsInf(dur, 0) {
		i.durationLabel = dur
	}
}

func (d *SyncDriver) seek(r float64) {
	e := d.inst.engine
	if e == nil || e.Destroyed() {
		d.inst.logger.Debug("seek on missing engine", "ratio", r)
		return
	}
	e.SeekTo(r)
}
