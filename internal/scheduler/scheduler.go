package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"torrentbot/internal/apperrors"
	"torrentbot/internal/domain"
	"torrentbot/internal/metrics"
)

// TimeLayout is the only accepted format for fire times.
const TimeLayout = "2006-01-02 15:04:05"

const maxSleepCap = 60 * time.Second

type removeRequest struct {
	id    string
	reply chan bool
}

// Scheduler queues jobs and calls onFire for each one once its time has come.
type Scheduler struct {
	addChan     chan domain.ScheduledJob
	removeChan  chan removeRequest
	pendingChan chan chan int
	ctx         context.Context
	log         logrus.FieldLogger
}

// New creates and starts a Scheduler. The goroutine exits when ctx is cancelled.
func New(ctx context.Context, onFire func(domain.ScheduledJob), logger logrus.FieldLogger) *Scheduler {
	s := &Scheduler{
		addChan:     make(chan domain.ScheduledJob, 64),
		removeChan:  make(chan removeRequest),
		pendingChan: make(chan chan int),
		ctx:         ctx,
		log:         logger.WithField("component", "scheduler"),
	}
	go s.run(onFire)
	return s
}

// ParseFireTime parses s as local wall-clock time in TimeLayout.
func ParseFireTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q does not match YYYY-MM-DD HH:MM:SS: %w", s, apperrors.ErrInvalidTimeFormat)
	}
	return t, nil
}

// Schedule queues magnet for fireAt. Times in the past are accepted and
// fire on the next tick.
func (s *Scheduler) Schedule(userID int64, magnet, fireAt string) (domain.ScheduledJob, error) {
	at, err := ParseFireTime(fireAt)
	if err != nil {
		return domain.ScheduledJob{}, err
	}

	job := domain.ScheduledJob{
		ID:         uuid.NewString(),
		UserID:     userID,
		MagnetLink: magnet,
		FireAt:     at,
	}
	s.Add(job)
	return job, nil
}

// Add enqueues a job.
func (s *Scheduler) Add(job domain.ScheduledJob) {
	select {
	case s.addChan <- job:
	case <-s.ctx.Done():
	}
}

// Cancel removes a queued job and reports whether it was still pending.
func (s *Scheduler) Cancel(id string) bool {
	req := removeRequest{id: id, reply: make(chan bool, 1)}
	select {
	case s.removeChan <- req:
	case <-s.ctx.Done():
		return false
	}
	select {
	case removed := <-req.reply:
		return removed
	case <-s.ctx.Done():
		return false
	}
}

// Pending returns the number of queued jobs, or 0 once the scheduler stopped.
func (s *Scheduler) Pending() int {
	reply := make(chan int, 1)
	select {
	case s.pendingChan <- reply:
	case <-s.ctx.Done():
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-s.ctx.Done():
		return 0
	}
}

// run owns the heap. Adds are drained before pending counts are answered,
// so a Pending call made after Add returns always sees the job.
func (s *Scheduler) run(onFire func(domain.ScheduledJob)) {
	h := &jobHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		metrics.ScheduledJobs.Set(float64(h.Len()))
		if h.Len() == 0 {
			return nil
		}
		dur := time.Until((*h)[0].FireAt)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	push := func(job domain.ScheduledJob) {
		heapPush(h, job)
		s.log.WithFields(logrus.Fields{
			"job_id":  job.ID,
			"fire_at": job.FireAt,
		}).Info("Download scheduled")
	}

	drainAdds := func() {
		for {
			select {
			case job := <-s.addChan:
				push(job)
			default:
				return
			}
		}
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			if h.Len() > 0 {
				s.log.WithField("pending", h.Len()).Warn("Scheduler stopped with pending jobs")
			}
			return

		case job := <-s.addChan:
			push(job)
			timerCh = resetTimer()

		case req := <-s.removeChan:
			drainAdds()
			req.reply <- heapRemoveByID(h, req.id)
			timerCh = resetTimer()

		case reply := <-s.pendingChan:
			drainAdds()
			reply <- h.Len()
			timerCh = resetTimer()

		case <-timerCh:
			for _, job := range popDue(h, time.Now()) {
				s.log.WithField("job_id", job.ID).Info("Firing scheduled download")
				onFire(job)
			}
			timerCh = resetTimer()
		}
	}
}

// popDue removes and returns every job due at or before now, earliest first.
func popDue(h *jobHeap, now time.Time) []domain.ScheduledJob {
	var due []domain.ScheduledJob
	for h.Len() > 0 && !(*h)[0].FireAt.After(now) {
		due = append(due, heapPop(h))
	}
	return due
}
