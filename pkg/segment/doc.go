// Package segment implements the resegmentation engine of the relay: it
// turns a sequence of cumulative reply payloads (each one carrying the whole
// answer so far) into boundary-aligned chunks of new text.
//
// The pieces are deliberately separable:
//
//	LastBoundary  pure search for the latest boundary marker
//	Policy        decides how much of a pending span to flush
//	Tracker       per-session state: flushed length and frame count
//
// A Tracker is owned by exactly one relay session and is never shared.
package segment
