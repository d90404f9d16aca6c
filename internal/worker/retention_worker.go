package worker

import (
	"context"
	"log"
	"time"

	"orbita/internal/service"
)

// RetentionWorker периодически удаляет телеметрию старше maxAge
type RetentionWorker struct {
	service  service.TelemetryService
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
	running  bool
}

func NewRetentionWorker(service service.TelemetryService, interval, maxAge time.Duration) *RetentionWorker {
	return &RetentionWorker{
		service:  service,
		interval: interval,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
	}
}

func (w *RetentionWorker) Start() {
	if w.running {
		return
	}

	w.running = true
	log.Printf("Retention Worker started (interval: %v, max age: %v)", w.interval, w.maxAge)

	w.purge()

	go w.run()
}

func (w *RetentionWorker) Stop() {
	if !w.running {
		return
	}

	close(w.stopChan)
	w.running = false
	log.Println("Retention Worker stopped")
}

func (w *RetentionWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.purge()
		case <-w.stopChan:
			return
		}
	}
}

func (w *RetentionWorker) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := w.service.PurgeOlderThan(ctx, w.maxAge); err != nil {
		log.Printf("Retention Worker error: %v", err)
	}
}
