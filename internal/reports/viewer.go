package reports

import "sync"

// Viewer guards a displayed page against stale in-flight responses. Queries
// take a ticket via Issue; a response is applied only if its ticket is still
// the most recently issued one. Completion order does not matter, issue
// order does.
type Viewer struct {
	mu     sync.Mutex
	issued uint64
	page   *ReportPage
}

func NewViewer() *Viewer {
	return &Viewer{}
}

// Issue registers a new query and returns its ticket. Any ticket issued
// earlier becomes stale immediately.
func (v *Viewer) Issue() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.issued++
	return v.issued
}

// Apply installs page as the displayed result if ticket is still current.
// It reports whether the result was applied or discarded as stale.
func (v *Viewer) Apply(ticket uint64, page *ReportPage) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ticket != v.issued {
		return false
	}
	v.page = page
	return true
}

// Current returns the displayed page, or nil before the first Apply.
func (v *Viewer) Current() *ReportPage {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}
