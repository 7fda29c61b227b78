// Package connection manages the lifecycle of the single radio link.
//
// The Manager runs one background loop: dial the gateway, forward the link's
// event stream to the packet handler, and on any failure wait out the backoff
// and dial again, forever. Shutdown is the only exit: cancelling the Run
// context closes the live link and stops the loop.
//
// State transitions are Disconnected -> Connecting -> Connected, back to
// Disconnected on any transport failure. Status snapshots are lock-free and
// safe from any goroutine; the Manager is the sole writer.
package connection
