package jobs

import (
	"context"
	"log"
	"time"
)

// Task is one unit of periodic background work
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Worker runs a Task on a fixed interval until stopped
type Worker struct {
	task     Task
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewWorker(task Task, interval time.Duration) *Worker {
	return &Worker{
		task:     task,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start blocks, running the task on every tick. Task errors are logged and
// do not stop the loop.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("%s: worker started with interval %v", w.task.Name(), w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s: worker stopped: context cancelled", w.task.Name())
			return
		case <-w.stopChan:
			log.Printf("%s: worker stopped", w.task.Name())
			return
		case <-ticker.C:
			if err := w.task.Run(ctx); err != nil {
				log.Printf("%s: %v", w.task.Name(), err)
			}
		}
	}
}

// Stop signals the loop and waits for it to exit
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
