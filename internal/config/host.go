package config

import "sync/atomic"

// Host holds the scrape service base address. It is read on every import and
// may be swapped at runtime, e.g. when switching backend environments.
type Host struct {
	v atomic.Value
}

func NewHost(initial string) *Host {
	h := &Host{}
	h.v.Store(initial)
	return h
}

func (h *Host) Get() string {
	s, _ := h.v.Load().(string)
	return s
}

func (h *Host) Set(host string) {
	h.v.Store(host)
}
