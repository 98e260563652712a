package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Dispatcher implements waveform.Dispatcher on top of a bubbletea program.
// Posted callbacks are queued and the program is woken with a dispatchMsg;
// the model drains the queue inside Update, so every callback runs on the
// UI goroutine in the order it was posted. Post never blocks, which makes
// it safe to call from Update itself.
type Dispatcher struct {
	mu       sync.Mutex
	queue    []func()
	send     func(tea.Msg)
	signaled bool
}

// NewDispatcher returns a dispatcher that queues until attached
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Attach starts delivering wake-ups to p
func (d *Dispatcher) Attach(p *tea.Program) {
	d.attach(p.Send)
}

func (d *Dispatcher) attach(send func(tea.Msg)) {
	d.mu.Lock()
	d.send = send
	d.mu.Unlock()
	d.signal()
}

// Post queues fn for the UI goroutine
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
	d.signal()
}

func (d *Dispatcher) signal() {
	d.mu.Lock()
	if d.signaled || d.send == nil || len(d.queue) == 0 {
		d.mu.Unlock()
		return
	}
	d.signaled = true
	send := d.send
	d.mu.Unlock()

	// Program.Send blocks until the event loop reads it
	go send(dispatchMsg{})
}

// Drain runs every queued callback. Callbacks posted while draining are
// picked up by the next wake-up.
func (d *Dispatcher) Drain() int {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.signaled = false
	d.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	d.signal()
	return len(queue)
}
