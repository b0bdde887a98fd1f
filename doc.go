// Package itemsync keeps an in-memory, observable list of records
// synchronized with a pluggable backing store, while applying create,
// update and delete requests that arrive asynchronously from independent
// producers.
//
// # Quick Start
//
// Create a controller, start event delivery and publish requests:
//
//	ctrl, err := itemsync.New(ctx)
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Close()
//
//	ctrl.Start(ctx)
//	ctrl.Publish(events.Create{Sender: "importer", Record: itemsync.Record{
//	    ID:   store.NewID(),
//	    Name: "Lantern",
//	}})
//
//	if ctrl.NeedsRefresh() {
//	    render(ctrl.Records())
//	}
//
// # Data Sources
//
// Two interchangeable stores are available and can be swapped at runtime
// with [Controller.SetDataSource] or an [events.SetDataSource] event:
//
//   - [SourceTransient] (0): in-memory, seeded with demo records
//   - [SourcePersistent] (1): SQLite, see [store.SQLStore]
//
// # Consistency
//
// After every full load the cache holds exactly the store's records sorted
// by Name, then Description. Between loads it may drift: [Controller.Add]
// appends without sorting, and operations racing a load may briefly
// disagree with the store. [Controller.Update] always reloads; consumers
// watch [Controller.NeedsRefresh] (or use [WithAutoRefresh]) to reload after
// other changes.
//
// Callers never see store failures from Add, Delete, Update or loads. Add
// always reports success; Delete and Update report false; loads record the
// failure in a [LoadResult]. Only [Controller.Read] returns store errors.
//
// # Architecture
//
//   - store: Record type, Store contract, memory and SQLite stores
//   - events: typed topics and the ordered event bus
//   - internal/cache: ordered observable cache
//   - internal/server: HTTP API, Server-Sent Events and WebSocket streams
//   - internal/watch: watches the database file for outside writers
//   - config: YAML/TOML configuration for the itemsync binary
package itemsync
