// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"net"
	"time"
)

// Config holds common configuration for ctapi operations.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// API is the [NativeAPI] used to reach the vendor library.
	//
	// Set by [NewConfig] to [DefaultNativeAPI].
	API NativeAPI

	// BufferSize is the default result buffer size of an [*AsyncOperation]
	// and of the synchronous read calls.
	//
	// Set by [NewConfig] to 256.
	BufferSize int

	// CompletionEvent controls whether each [*AsyncOperation] owns a
	// manual-reset event stored in its control block.
	//
	// Set by [NewConfig] to true.
	CompletionEvent bool

	// Dialer is used by [*ProbeFunc].
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// PollInterval is the cooperative polling interval of [*ListReadFunc].
	//
	// Set by [NewConfig] to 10 milliseconds.
	PollInterval time.Duration

	// ServerPort is the TCP port dialed by [*ProbeFunc].
	//
	// Set by [NewConfig] to "2073".
	ServerPort string

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		API:             DefaultNativeAPI(),
		BufferSize:      256,
		CompletionEvent: true,
		Dialer:          &net.Dialer{},
		ErrClassifier:   DefaultErrClassifier,
		PollInterval:    10 * time.Millisecond,
		ServerPort:      "2073",
		TimeNow:         time.Now,
	}
}
