package waveform

// BufferInjector hydrates an engine with an already decoded buffer,
// skipping the fetch and decode of Load. It is the only path that writes
// an engine's buffer from outside the engine.
type BufferInjector interface {
	InjectBuffer(buf *Buffer)
	Redraw()
}

// Injector returns the BufferInjector for e
func Injector(e *Engine) BufferInjector {
	return engineInjector{e: e}
}

type engineInjector struct {
	e *Engine
}

func (i engineInjector) InjectBuffer(buf *Buffer) {
	if i.e.destroyed {
		return
	}
	i.e.buffer = buf
	i.e.peaks = nil
	i.e.loading = false
}

func (i engineInjector) Redraw() {
	if i.e.destroyed {
		return
	}
	i.e.peaks = nil
	i.e.events.Emit(EventRedraw, Event{})
}
