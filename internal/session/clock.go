package session

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

// Timer is a scheduled periodic callback.
type Timer interface {
	// Stop cancels future callbacks. A callback already running may still finish.
	Stop()
}

// Scheduler starts periodic callbacks.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
}

type tickerScheduler struct{}

// TickerScheduler returns a Scheduler running each timer on its own goroutine.
func TickerScheduler() Scheduler {
	return tickerScheduler{}
}

func (tickerScheduler) Every(interval time.Duration, fn func()) Timer {
	t := &tickerTimer{stop: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				select {
				case <-t.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
	return t
}

type tickerTimer struct {
	stop chan struct{}
	once sync.Once
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func stopTimer(t Timer) {
	if t != nil {
		t.Stop()
	}
}
