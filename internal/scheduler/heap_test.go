package scheduler

import (
	"container/heap"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrentbot/internal/domain"
)

func TestJobHeap_OrdersByFireTime(t *testing.T) {
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	h := &jobHeap{}
	heap.Init(h)

	heapPush(h, domain.ScheduledJob{ID: "c", FireAt: base.Add(3 * time.Hour)})
	heapPush(h, domain.ScheduledJob{ID: "a", FireAt: base.Add(1 * time.Hour)})
	heapPush(h, domain.ScheduledJob{ID: "b", FireAt: base.Add(2 * time.Hour)})

	var order []string
	for h.Len() > 0 {
		order = append(order, heapPop(h).ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestJobHeap_RemoveByID(t *testing.T) {
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	h := &jobHeap{}
	heapPush(h, domain.ScheduledJob{ID: "a", FireAt: base})
	heapPush(h, domain.ScheduledJob{ID: "b", FireAt: base.Add(time.Minute)})

	assert.True(t, heapRemoveByID(h, "a"))
	assert.False(t, heapRemoveByID(h, "a"))
	require.Equal(t, 1, h.Len())
	assert.Equal(t, "b", (*h)[0].ID)
}

func TestPopDue(t *testing.T) {
	fireAt, err := ParseFireTime("2099-01-01 00:00:00")
	require.NoError(t, err)

	h := &jobHeap{}
	heapPush(h, domain.ScheduledJob{ID: "later", MagnetLink: "magnet:?later", FireAt: fireAt.Add(time.Hour)})
	heapPush(h, domain.ScheduledJob{ID: "job", MagnetLink: "magnet:?job", FireAt: fireAt})

	assert.Empty(t, popDue(h, fireAt.Add(-time.Second)))

	due := popDue(h, fireAt)
	require.Len(t, due, 1)
	assert.Equal(t, "magnet:?job", due[0].MagnetLink)
	assert.Equal(t, 1, h.Len())

	assert.Empty(t, popDue(h, fireAt), "fired jobs are discarded")
}
