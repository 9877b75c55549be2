package worker

import (
	"errors"
	"sync"

	"github.com/meterline/billing/pkg/logger"
)

type Handler = func(workerIndex int, job interface{})

// Manager is a fixed-size goroutine pool fed by a buffered job channel.
// Workers run until Exit() is called; the job channel is never closed here
// because it may be shared with other producers.
type Manager struct {
	bufferSize     int
	jobChannel     chan interface{}
	numberOfWorker int
	quit           chan struct{}
	do             Handler
	waiter         *sync.WaitGroup
}

func NewManager(bufferSize, numberOfWorkers int, jobChannel chan interface{}) *Manager {
	if jobChannel == nil {
		jobChannel = make(chan interface{}, bufferSize)
	}
	return &Manager{
		bufferSize:     bufferSize,
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		quit:           make(chan struct{}),
		waiter:         &sync.WaitGroup{},
	}
}

func (w *Manager) GetUnreadCount() int64 {
	if w.jobChannel == nil {
		return 0
	}
	return int64(len(w.jobChannel))
}

func (w *Manager) JobEvents() chan interface{} {
	return w.jobChannel
}

func (w *Manager) SetWorker(worker Handler) {
	w.do = worker
}

// Enqueue publishes a job onto the channel. Blocks when the buffer is full.
func (w *Manager) Enqueue(val interface{}) {
	w.jobChannel <- val
}

// Start runs the workers and blocks until Exit() is called.
func (w *Manager) Start() error {
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(index, job)
				case <-w.quit:
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()

	return errors.New("workers terminated")
}

// Exit stops all workers. Jobs still buffered in the channel are left there.
func (w *Manager) Exit() {
	logger.Info("Exit() is called and worker manager is going to be shutdown")
	close(w.quit)
}
