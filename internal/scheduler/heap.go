package scheduler

import (
	"container/heap"

	"torrentbot/internal/domain"
)

// jobHeap implements container/heap.Interface, earliest FireAt first.
type jobHeap []domain.ScheduledJob

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].FireAt.Before(h[j].FireAt) }
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(domain.ScheduledJob))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *jobHeap, job domain.ScheduledJob) {
	heap.Push(h, job)
}

// heapPop panics if the heap is empty.
func heapPop(h *jobHeap) domain.ScheduledJob {
	return heap.Pop(h).(domain.ScheduledJob)
}

// heapRemoveByID reports whether a job with id was found and removed.
func heapRemoveByID(h *jobHeap, id string) bool {
	for i, job := range *h {
		if job.ID == id {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
