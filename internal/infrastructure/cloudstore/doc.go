// Package cloudstore writes notifications and sensor readings to a
// Firebase Realtime Database through its REST API.
//
// The store is one of the two notification channels. Writes have overwrite
// semantics: the observer only ever sees the latest notification and the
// latest value of each sensor key.
//
// # Resilience
//
//   - Connect probes the database with exponential backoff (cenkalti/backoff)
//   - Every write passes through a circuit breaker (sony/gobreaker); while it
//     is open writes fail immediately with ErrUnavailable
//   - Nothing is queued or retried after a failed write
//
// # Configuration
//
//	cloudstore:
//	  enabled: true
//	  database_url: "https://my-door.firebaseio.com"
//	  timeout: 5
//	  notification_path: "/notifications"
//	  sensor_path: "/sensors"
//	  breaker:
//	    consecutive_failures: 5
//	    open_seconds: 30
//
// The auth token is appended as the auth query parameter and should come from
// ENTRYGUARD_CLOUDSTORE_TOKEN. It is stripped from every returned error.
//
// # Usage
//
//	store, err := cloudstore.Connect(ctx, cfg.CloudStore)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	store.Set(ctx, "/notifications", "User detected at the door.")
package cloudstore
