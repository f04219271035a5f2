// Package notify delivers entry guard events to the remote observer.
//
// Every event goes to two channels, the broker's notification topic and the
// cloud store's notification document. The channels are attempted
// concurrently and independently; a failure on one never blocks or cancels
// the other. Results come back as one DeliveryResult per channel so the
// caller can log and count them. Nothing is retried.
//
// The package also renders periodic sensor telemetry: a CSV line on the
// sensor topic and one key per reading under the sensor document path.
package notify
