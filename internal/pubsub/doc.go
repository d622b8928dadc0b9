// Package pubsub publishes chunk and job progress events to the message
// broker so submitters can follow processing without polling the store.
package pubsub
