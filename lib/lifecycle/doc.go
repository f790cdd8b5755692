// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle turns a partition's raw commit-log messages into
// ordered object lifecycle callbacks. A Task is one worker goroutine
// per (partition, subscribed type): producers push log messages with
// Add, the worker drains them in bounded batches and classifies each
// one against its header. No payload is a tombstone (OnRemove), a
// payload with no previous version is a first write (OnCreate), and a
// payload with one is an update (OnUpdate).
//
// The worker's loop fixes the delivery guarantees:
//
//   - Catch-up before live traffic: the first successful iteration
//     delivers OnInit with a full snapshot of the partition's known
//     objects, then seeds the task identity's keys into the
//     partition's key store so payload access checks can succeed.
//
//   - A heartbeat every iteration: OnTick fires whether or not
//     messages arrived.
//
//   - Bounded batches: at most 1000 messages drain per iteration, so
//     a flooded queue cannot starve tick or idle bookkeeping.
//
//   - Bounded staleness when quiet: an empty iteration blocks at most
//     min(idle threshold, 1s), and once a full idle threshold passes
//     without traffic the worker warms the partition data and fires
//     OnIdle, once per quiet interval.
//
//   - Per-object serialization: each message is processed under a
//     process-wide exclusive lock keyed by (partition, object id), so
//     two tasks never interleave work on the same logical object. One
//     lock per message and nothing acquired under it, so the path
//     cannot deadlock.
//
//   - Fault isolation: an error or panic from one message or one
//     callback is logged and skipped; the batch, the loop, and the
//     worker survive. Unreadable targets (authorization) and payloads
//     that do not decode to the subscribed type are silent skips, not
//     faults.
//
// Every callback runs under a context carrying a Scope (partition key
// plus identity token) that is canceled when the callback returns, so
// per-call state cannot leak across invocations.
//
// Stop is cooperative: it flips the state, wakes the worker, and waits
// for the in-flight message to finish. A stopped task never restarts.
package lifecycle
