package waveform

// Dispatcher runs callbacks on the UI goroutine. Decode completions are
// posted through it so that every state mutation happens on one goroutine.
type Dispatcher interface {
	Post(fn func())
}
