// Package errors provides standardized error handling patterns for meshttpd.
//
// # Overview
//
// The package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input, non-retryable), and Fatal
// (unrecoverable, stop processing).
//
// Classification lets components make retry decisions without hardcoded error
// string matching. The connection manager retries anything transient forever;
// the HTTP gateway maps invalid errors to client-class responses; fatal errors
// abort startup.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if link == nil {
//	    return errors.ErrNotConnected
//	}
//
// Wrap third-party errors with component context:
//
//	if err := link.Send(ctx, text, target); err != nil {
//	    return errors.WrapTransient(err, "Manager", "Send", "deliver text")
//	}
//
// All wrapping follows the format "component.method: action failed: <cause>",
// and wrapped errors remain compatible with errors.Is and errors.As.
package errors
