package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrentbot/internal/apperrors"
	"torrentbot/internal/domain"
)

// recorder collects fired jobs.
type recorder struct {
	mu    sync.Mutex
	fired []domain.ScheduledJob
}

func (r *recorder) onFire(job domain.ScheduledJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, job)
}

func (r *recorder) jobs() []domain.ScheduledJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ScheduledJob(nil), r.fired...)
}

func newTestScheduler(t *testing.T) (*Scheduler, *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	rec := &recorder{}
	return New(ctx, rec.onFire, logger), rec
}

func TestParseFireTime(t *testing.T) {
	got, err := ParseFireTime("2099-01-01 00:00:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2099, 1, 1, 0, 0, 0, 0, time.Local)), "got %s", got)

	for _, bad := range []string{"", "2099-01-01", "01/01/2099 00:00:00", "2099-01-01T00:00:00", "tomorrow"} {
		_, err := ParseFireTime(bad)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTimeFormat, bad)
		assert.ErrorIs(t, err, apperrors.ErrValidation, bad)
	}
}

func TestScheduler_FutureJobStaysPending(t *testing.T) {
	s, rec := newTestScheduler(t)

	job, err := s.Schedule(42, "magnet:?xt=urn:btih:future", "2099-01-01 00:00:00")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, int64(42), job.UserID)

	assert.Equal(t, 1, s.Pending())
	assert.Empty(t, rec.jobs())
}

func TestScheduler_InvalidTimeQueuesNothing(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Schedule(1, "magnet:?x", "next tuesday")
	require.ErrorIs(t, err, apperrors.ErrInvalidTimeFormat)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_PastJobFiresOnce(t *testing.T) {
	s, rec := newTestScheduler(t)

	past := time.Now().Add(-time.Hour).Format(TimeLayout)
	_, err := s.Schedule(7, "magnet:?xt=urn:btih:past", past)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.jobs()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Give the loop a chance to misfire a second time.
	time.Sleep(100 * time.Millisecond)
	fired := rec.jobs()
	require.Len(t, fired, 1)
	assert.Equal(t, "magnet:?xt=urn:btih:past", fired[0].MagnetLink)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_FiresInTimeOrder(t *testing.T) {
	s, rec := newTestScheduler(t)

	now := time.Now()
	s.Add(domain.ScheduledJob{ID: "second", FireAt: now.Add(150 * time.Millisecond)})
	s.Add(domain.ScheduledJob{ID: "first", FireAt: now.Add(50 * time.Millisecond)})

	require.Eventually(t, func() bool { return len(rec.jobs()) == 2 }, 2*time.Second, 10*time.Millisecond)
	fired := rec.jobs()
	assert.Equal(t, "first", fired[0].ID)
	assert.Equal(t, "second", fired[1].ID)
}

func TestScheduler_Cancel(t *testing.T) {
	s, rec := newTestScheduler(t)

	job, err := s.Schedule(1, "magnet:?x", "2099-01-01 00:00:00")
	require.NoError(t, err)

	assert.True(t, s.Cancel(job.ID))
	assert.False(t, s.Cancel(job.ID))
	assert.Equal(t, 0, s.Pending())
	assert.Empty(t, rec.jobs())
}

func TestScheduler_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	rec := &recorder{}
	s := New(ctx, rec.onFire, logger)

	s.Add(domain.ScheduledJob{ID: "late", MagnetLink: "magnet:?x", FireAt: time.Now().Add(300 * time.Millisecond)})
	cancel()

	time.Sleep(500 * time.Millisecond)
	assert.Empty(t, rec.jobs())
	assert.Equal(t, 0, s.Pending())
}
