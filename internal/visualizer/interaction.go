package visualizer

import (
	"math"

	"github.com/mmcdole/tapedeck/internal/waveform"
)

// InteractionDriver turns clicks and drags on the waveform into playback
// commands.
type InteractionDriver struct {
	inst *Instance
}

func (d *InteractionDriver) attach(e *waveform.Engine) []func() {
	return []func(){
		e.On(waveform.EventInteraction, func(waveform.Event) {
			d.seekTo(e.CurrentTime())
		}),
		e.On(waveform.EventSeek, func(ev waveform.Event) {
			d.seekTo(ev.Ratio * e.Duration())
		}),
	}
}

// seekTo starts the track at seconds when it is inactive, or seeks the
// active track and resumes it if paused.
func (d *InteractionDriver) seekTo(seconds float64) {
	i := d.inst
	if i.state == Destroyed || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}
	seconds = max(seconds, 0)

	i.shared.Positions.Set(i.track.ID, seconds)
	i.currentLabel = seconds

	sess := i.shared.Session
	if !sess.IsActive(i.track.ID) {
		i.logger.Debug("play from waveform", "at", seconds)
		sess.Play(i.track, seconds)
		return
	}
	sess.Seek(seconds)
	if !sess.IsPlaying() {
		sess.Play(i.track, seconds)
	}
}
