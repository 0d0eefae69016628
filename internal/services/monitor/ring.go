package monitor

// titleRing is a fixed-capacity seen-set. When full, the oldest entry is
// evicted. It is not safe for concurrent use; the monitor loops are
// single-goroutine.
type titleRing struct {
	capacity int
	order    []string
	seen     map[string]struct{}
}

func newTitleRing(capacity int) *titleRing {
	if capacity <= 0 {
		capacity = 1000
	}
	return &titleRing{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

func (r *titleRing) Contains(title string) bool {
	_, ok := r.seen[title]
	return ok
}

func (r *titleRing) Add(title string) {
	if r.Contains(title) {
		return
	}
	if len(r.order) >= r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.seen, oldest)
	}
	r.order = append(r.order, title)
	r.seen[title] = struct{}{}
}

func (r *titleRing) Len() int {
	return len(r.order)
}
