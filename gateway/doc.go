// Package gateway turns supplier stock batches into relay jobs.
//
// Ingest authenticates the caller, resolves the batch envelope once into an Envelope, maps every
// raw item through the supplier's field rules and compares the sanitized result with the state
// store. Unchanged items are skipped, simulated batches commit their state immediately, and
// everything else is enqueued as a stockrelay.Message. State is never written for enqueued items;
// the relay writes it after the downstream endpoint confirms delivery.
package gateway
