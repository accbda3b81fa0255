// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"denoiser/internal/log"
)

// LoggingTransport writes every message to the debug log. It is the fallback
// when no network transport is configured.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	log.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the message as JSON, or with %+v if it does not marshal.
func (lt *LoggingTransport) Send(data any) error {
	if log.GetLevel() > log.LevelDebug {
		return nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Debugf("LOG_TRANSPORT: Received (%T): %+v (JSON marshal error: %v)", data, data, err)
		return nil
	}
	log.Debugf("LOG_TRANSPORT: Received (%T): %s", data, jsonData)
	return nil
}

func (lt *LoggingTransport) Close() error {
	log.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
