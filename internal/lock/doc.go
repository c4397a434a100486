// Package lock provides per-work-unit mutual exclusion with TTL-based
// auto-expiry. It is the only strong ordering guarantee in quell: two
// workers racing on the same unit are serialized by Acquire, and the
// loser observes false rather than blocking.
//
// # Backends
//
// Two [Backend] implementations are provided:
//   - [FileBackend]: one JSON lock record per key in a lock directory,
//     created atomically with O_CREATE|O_EXCL. Correct across processes
//     on one host.
//   - [KVBackend]: delegates atomicity to a SetNX-style [Store], so a
//     networked key-value primitive can provide cross-machine
//     correctness without changing callers.
//
// # Semantics
//
// An expired lock is identical to an absent lock: a holder that crashed
// without releasing does not need to act for the key to become
// acquirable again after the TTL elapses. Backend unavailability makes
// Acquire return false (fail closed): quell never processes a unit
// without holding its lock.
package lock
