package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jpalmerr/itemsync"
	"github.com/jpalmerr/itemsync/events"
	"github.com/jpalmerr/itemsync/store"
)

var fruit = []string{"apple", "banana", "cherry", "damson", "elderberry", "fig", "grape"}

// RunProducer publishes a random create, update or delete every 1-3 seconds
// until ctx is cancelled. Every 30 seconds it flips the data source.
func RunProducer(ctx context.Context, ctrl *itemsync.Controller, logger *slog.Logger) {
	const sender = "example-producer"
	var ids []string
	source := 0
	flipAt := time.Now().Add(30 * time.Second)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(1000+rand.Intn(2000)) * time.Millisecond):
		}

		if time.Now().After(flipAt) {
			source = 1 - source
			ids = nil
			flipAt = time.Now().Add(30 * time.Second)
			ctrl.Publish(events.SetDataSource{Sender: sender, Source: source})
			continue
		}

		var ev events.Event
		switch n := rand.Intn(10); {
		case n < 5 || len(ids) == 0:
			r := store.Record{
				ID:          store.NewID(),
				Name:        fruit[rand.Intn(len(fruit))],
				Description: fmt.Sprintf("batch %d", rand.Intn(100)),
				Value:       1 + rand.Intn(50),
			}
			ids = append(ids, r.ID)
			ev = events.Create{Sender: sender, Record: r}
		case n < 8:
			id := ids[rand.Intn(len(ids))]
			ev = events.Update{Sender: sender, Record: store.Record{ID: id, Value: 1 + rand.Intn(50)}}
		default:
			i := rand.Intn(len(ids))
			ev = events.Delete{Sender: sender, Record: store.Record{ID: ids[i]}}
			ids = append(ids[:i], ids[i+1:]...)
		}

		if !ctrl.Publish(ev) {
			logger.Warn("producer event dropped", "topic", ev.Topic().String())
		}
	}
}
