package services

import "cleanbot/server/messages"

// EventSink receives simulation events. Publish must not block the caller.
type EventSink interface {
	Publish(event messages.Event)
}

// SinkFunc adapts a function to EventSink
type SinkFunc func(event messages.Event)

// Publish calls f(event)
func (f SinkFunc) Publish(event messages.Event) {
	f(event)
}

// MultiSink fans every event out to each sink in order
type MultiSink []EventSink

// Publish forwards the event to all sinks
func (m MultiSink) Publish(event messages.Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Publish(event)
		}
	}
}

// DiscardSink drops every event
var DiscardSink EventSink = SinkFunc(func(messages.Event) {})
