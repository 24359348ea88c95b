// Package util holds small concurrency helpers shared by the bridge.
package util

import "sync/atomic"

// SafeCounter is safe to use concurrently.
type SafeCounter struct {
	value atomic.Int64
}

// NewSafeCounter creates a new SafeCounter.
func NewSafeCounter() *SafeCounter {
	return &SafeCounter{}
}

// Increment increments the counter's value and returns the new value.
func (sc *SafeCounter) Increment() int {
	return int(sc.value.Add(1))
}

// Decrement decrements the counter's value and returns the new value.
func (sc *SafeCounter) Decrement() int {
	return int(sc.value.Add(-1))
}

// Value returns the current value of the counter.
func (sc *SafeCounter) Value() int {
	return int(sc.value.Load())
}

// Track increments the counter and returns a func that undoes it.
func (sc *SafeCounter) Track() func() {
	sc.Increment()
	return func() { sc.Decrement() }
}

// SafeFlag is safe to use concurrently.
type SafeFlag struct {
	value atomic.Bool
}

// NewSafeFlag creates a new SafeFlag.
func NewSafeFlag() *SafeFlag {
	return &SafeFlag{}
}

// Set sets the value of the flag and returns the new value.
func (sf *SafeFlag) Set(newValue bool) bool {
	sf.value.Store(newValue)
	return newValue
}

// Value returns the current value of the flag.
func (sf *SafeFlag) Value() bool {
	return sf.value.Load()
}
