// Package events defines the typed topics producers use to reach the
// itemsync controller, and the ordered [Bus] that delivers them.
//
// Each topic has its own event type carrying the producer's name (Sender)
// and a typed payload:
//
//   - [SetDataSource]: select data source 0 or 1
//   - [Create]: add a record
//   - [Delete]: remove a record
//   - [Update]: merge fields into an existing record
//   - [WipeDataList]: clear the backing store
//
// Delivery is at-most-once: a publish that cannot be queued is dropped.
// Events are handled one at a time in publish order.
package events

import "github.com/jpalmerr/itemsync/store"

// Topic names the kind of request an event carries.
type Topic string

const (
	TopicSetDataSource Topic = "SetDataSource"
	TopicCreate        Topic = "Create"
	TopicDelete        Topic = "Delete"
	TopicUpdate        Topic = "Update"
	TopicWipeDataList  Topic = "WipeDataList"
)

// String returns the topic name.
func (t Topic) String() string {
	return string(t)
}

// Event is implemented by every event type in this package.
type Event interface {
	Topic() Topic
	From() string
}

// SetDataSource asks the controller to switch backing stores.
type SetDataSource struct {
	Sender string
	Source int
}

// Create asks the controller to add Record.
type Create struct {
	Sender string
	Record store.Record
}

// Delete asks the controller to remove Record.
type Delete struct {
	Sender string
	Record store.Record
}

// Update asks the controller to merge Record into the stored record with the same ID.
type Update struct {
	Sender string
	Record store.Record
}

// WipeDataList asks the controller to clear the backing store.
// Confirm is carried for producers that send it; it is not consulted.
type WipeDataList struct {
	Sender  string
	Confirm bool
}

func (SetDataSource) Topic() Topic { return TopicSetDataSource }
func (Create) Topic() Topic        { return TopicCreate }
func (Delete) Topic() Topic        { return TopicDelete }
func (Update) Topic() Topic        { return TopicUpdate }
func (WipeDataList) Topic() Topic  { return TopicWipeDataList }

func (e SetDataSource) From() string { return e.Sender }
func (e Create) From() string        { return e.Sender }
func (e Delete) From() string        { return e.Sender }
func (e Update) From() string        { return e.Sender }
func (e WipeDataList) From() string  { return e.Sender }
