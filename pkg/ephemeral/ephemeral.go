// Package ephemeral is the token-keyed blob store used during adoption.
// Configurations too large for one interactive management session are
// parked here and pulled by the switch over the bootstrap file channel
// as adopt/<token>.
package ephemeral

// Store hands out unguessable tokens for text blobs. Blobs are written
// once and read many times during a short adoption window; backends
// expire them after a TTL so an aborted adoption does not leak memory.
type Store interface {
	// Put stores data and returns its token.
	Put(data string) (string, error)

	// Get returns the blob for token. Reading refreshes the blob's
	// lifetime, so a switch that retries its pull keeps the blob alive.
	Get(token string) (string, bool)
}
