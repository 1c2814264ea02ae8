package dueset

import (
	"container/heap"

	"github.com/phrazzld/recall-api/internal/domain"
)

// poolDue is the due list of one pool, already ordered by dueLess.
type poolDue struct {
	pool  *domain.Pool
	items []*domain.Item
}

// dueLess orders items by due time, then box, then id.
func dueLess(a, b *domain.Item) bool {
	if !a.DueAt.Equal(b.DueAt) {
		return a.DueAt.Before(b.DueAt)
	}
	if a.Box != b.Box {
		return a.Box < b.Box
	}
	return a.ID.String() < b.ID.String()
}

type cursor struct {
	list *poolDue
	pos  int
}

func (c *cursor) head() *domain.Item { return c.list.items[c.pos] }

// cursorHeap is a min-heap of list cursors keyed on their head item.
type cursorHeap []*cursor

func (h cursorHeap) Len() int           { return len(h) }
func (h cursorHeap) Less(i, j int) bool { return dueLess(h[i].head(), h[j].head()) }
func (h cursorHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)        { *h = append(*h, x.(*cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}

// mergeDue k-way merges per-pool due lists into one list ordered by dueLess.
// Each input list must already be ordered.
func mergeDue(lists []poolDue) []domain.ItemWithOrigin {
	total := 0
	h := make(cursorHeap, 0, len(lists))
	for i := range lists {
		if len(lists[i].items) == 0 {
			continue
		}
		total += len(lists[i].items)
		h = append(h, &cursor{list: &lists[i]})
	}
	heap.Init(&h)

	out := make([]domain.ItemWithOrigin, 0, total)
	for h.Len() > 0 {
		c := h[0]
		out = append(out, domain.ItemWithOrigin{
			PoolID:    c.list.pool.ID,
			PoolTitle: c.list.pool.Title,
			Item:      c.head(),
		})
		c.pos++
		if c.pos < len(c.list.items) {
			heap.Fix(&h, 0)
		} else {
			heap.Pop(&h)
		}
	}
	return out
}
