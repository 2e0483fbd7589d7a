package workers

import (
	"log"

	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/repository"
)

// StartEventWorkers launches a pool of worker goroutines to persist client
// events asynchronously. Handlers enqueue EventRecord values with a
// non-blocking send, so the analytics pipeline never delays a response.
func StartEventWorkers(workerCount int, events <-chan models.EventRecord, eventRepo repository.EventRepository) {
	log.Printf("Starting %d event worker(s)...", workerCount)
	for i := 0; i < workerCount; i++ {
		go eventWorker(events, eventRepo)
	}
}

// eventWorker drains the channel into the analytics database. When the
// channel is closed, the worker exits.
func eventWorker(events <-chan models.EventRecord, eventRepo repository.EventRepository) {
	for record := range events {
		event := &models.Event{
			UID:       record.UID,
			IPAddress: record.IPAddress,
			Action:    record.Action,
			Extra:     record.Extra,
			Timestamp: record.Timestamp,
		}
		if err := eventRepo.CreateEvent(event); err != nil {
			// Log and keep going; a lost analytics row is not worth a crash.
			log.Printf("ERROR: Failed to save event %s for uid %s: %v", record.Action, record.UID, err)
		}
	}
}
