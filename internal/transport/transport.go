// SPDX-License-Identifier: MIT
//
// Package transport carries visualization data out of the process. Producers
// hand any JSON-serializable value to a Transport; delivery is best effort and
// a slow or missing consumer never blocks the producer.
package transport

import (
	"github.com/hashicorp/go-multierror"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans one message out to several transports.
type Multi []Transport

// Send delivers data to every transport and reports all failures together.
func (m Multi) Send(data any) error {
	var result *multierror.Error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Close closes every transport, even when some fail.
func (m Multi) Close() error {
	var result *multierror.Error
	for _, t := range m {
		if err := t.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ Transport = Multi(nil)
