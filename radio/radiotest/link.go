// Package radiotest provides scripted in-memory radio links for testing.
package radiotest

import (
	"context"
	"sync"

	"github.com/lupettohf/meshttpd/errors"
	"github.com/lupettohf/meshttpd/radio"
)

// SendRecord captures one observed Send call.
type SendRecord struct {
	Text   string
	Target string
}

// Dialer is a scripted radio.Dialer. It can be told to fail a number of dials
// before succeeding, and hands out Links whose packet streams the test drives.
type Dialer struct {
	mu           sync.Mutex
	nodeID       uint32
	failuresLeft int
	dials        int
	current      *Link
}

// NewDialer creates a dialer whose links report nodeID as the local node.
// The first failBefore dials return an error.
func NewDialer(nodeID uint32, failBefore int) *Dialer {
	return &Dialer{nodeID: nodeID, failuresLeft: failBefore}
}

// Dial implements radio.Dialer.
func (d *Dialer) Dial(ctx context.Context, _ string) (radio.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if d.failuresLeft > 0 {
		d.failuresLeft--
		return nil, errors.ErrDialFailed
	}

	link := NewLink(d.nodeID)
	d.current = link
	return link, nil
}

// Dials returns how many times Dial was called.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Current returns the most recently dialed link, or nil.
func (d *Dialer) Current() *Link {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Link is a scripted radio.Link. Tests inject packets with Inject and observe
// outbound traffic with Sent.
type Link struct {
	nodeID uint32
	events chan radio.Packet

	mu           sync.Mutex
	sent         []SendRecord
	sendErr      error
	validTargets map[string]bool
	closed       bool
}

// NewLink creates a live scripted link.
func NewLink(nodeID uint32) *Link {
	return &Link{
		nodeID: nodeID,
		events: make(chan radio.Packet, 64),
	}
}

// LocalNodeID implements radio.Link.
func (l *Link) LocalNodeID() uint32 {
	return l.nodeID
}

// Events implements radio.Link.
func (l *Link) Events() <-chan radio.Packet {
	return l.events
}

// Send implements radio.Link, recording the call.
func (l *Link) Send(_ context.Context, text, target string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errors.ErrLinkClosed
	}
	if l.sendErr != nil {
		return l.sendErr
	}
	if target != "" && l.validTargets != nil && !l.validTargets[target] {
		return errors.ErrInvalidNodeID
	}

	l.sent = append(l.sent, SendRecord{Text: text, Target: target})
	return nil
}

// Close implements radio.Link. It drops the link like a transport failure,
// closing the event stream.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		l.closed = true
		close(l.events)
	}
	return nil
}

// Closed reports whether Close was called (or the link was dropped).
func (l *Link) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Inject pushes a packet into the event stream.
func (l *Link) Inject(p radio.Packet) {
	l.events <- p
}

// Drop simulates a transport failure, closing the event stream.
func (l *Link) Drop() {
	_ = l.Close()
}

// Sent returns a copy of the observed Send calls.
func (l *Link) Sent() []SendRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SendRecord, len(l.sent))
	copy(out, l.sent)
	return out
}

// SetSendError makes every subsequent Send fail with err.
func (l *Link) SetSendError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr = err
}

// SetValidTargets restricts which non-broadcast targets Send accepts.
// Any other target fails with ErrInvalidNodeID.
func (l *Link) SetValidTargets(targets ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.validTargets = make(map[string]bool, len(targets))
	for _, t := range targets {
		l.validTargets[t] = true
	}
}

// Text returns a pointer to s, for building packets in tests.
func Text(s string) *string {
	return &s
}

// Float returns a pointer to f, for building telemetry in tests.
func Float(f float64) *float64 {
	return &f
}
