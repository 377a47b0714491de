package preview

import "sync"

// Surface is the mounted preview of one editing session. Export reads it; the
// session writes it after every mutation.
type Surface struct {
	mu      sync.RWMutex
	layout  Layout
	mounted bool
}

// NewSurface returns an unmounted surface.
func NewSurface() *Surface {
	return &Surface{}
}

// Show replaces the displayed layout and mounts the surface.
func (s *Surface) Show(l Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = l
	s.mounted = true
}

// Unmount hides the surface. Snapshots report not mounted until the next Show.
func (s *Surface) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = false
}

// Mounted reports whether a layout is currently displayed.
func (s *Surface) Mounted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted
}

// Snapshot returns the displayed layout and whether the surface is mounted. A
// nil surface is never mounted.
func (s *Surface) Snapshot() (Layout, bool) {
	if s == nil {
		return Layout{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout, s.mounted
}
