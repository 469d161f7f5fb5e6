package app

import (
	"sync"
	"time"
)

// Ticker delivers countdown ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc builds the ticker a session owns for its countdown.
type TickerFunc func(interval time.Duration) Ticker

// NewWallTicker is the default TickerFunc backed by time.Ticker.
func NewWallTicker(interval time.Duration) Ticker {
	return wallTicker{t: time.NewTicker(interval)}
}

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

// ManualTicker only ticks when told to. Useful for deterministic countdowns.
type ManualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	m.once.Do(func() { close(m.stopped) })
}

// Tick blocks until the countdown receives the tick. It returns false once the
// ticker has been stopped.
func (m *ManualTicker) Tick() bool {
	select {
	case <-m.stopped:
		return false
	default:
	}
	select {
	case m.ch <- time.Now():
		return true
	case <-m.stopped:
		return false
	}
}

// Stopped reports whether Stop has been called.
func (m *ManualTicker) Stopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}
