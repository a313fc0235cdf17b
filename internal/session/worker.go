package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type job struct {
	delay time.Duration
	fn    func()
}

// worker runs delayed continuations one at a time on its own goroutine so
// the inbound delivery path never sleeps.
type worker struct {
	log      *zap.Logger
	jobs     chan job
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newWorker(log *zap.Logger) *worker {
	w := &worker{
		log:  log,
		jobs: make(chan job, 64),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			if j.delay > 0 {
				t := time.NewTimer(j.delay)
				select {
				case <-t.C:
				case <-w.quit:
					t.Stop()
					return
				}
			}
			j.fn()
		}
	}
}

// after queues fn to run once d has elapsed. It never blocks; false means
// the queue is full or the worker is stopped and fn was dropped.
func (w *worker) after(d time.Duration, fn func()) bool {
	select {
	case <-w.quit:
		return false
	default:
	}
	select {
	case w.jobs <- job{delay: d, fn: fn}:
		return true
	default:
		w.log.Warn("worker queue full, dropping job")
		return false
	}
}

func (w *worker) stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
	})
	<-w.done
}
