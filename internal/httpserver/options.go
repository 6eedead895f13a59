// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package httpserver

import (
	"time"
)

const (
	defaultReadTimeout       = 10 * time.Second
	defaultReadHeaderTimeout = time.Second
	defaultShutdownTimeout   = 3 * time.Second
)

// Option is a functional option for the HTTP server.
type Option func(s *optionalSettings)

type optionalSettings struct {
	readTimeout       time.Duration
	readHeaderTimeout time.Duration
	// writeTimeout is zero by default, so long responses
	// such as CPU profiles are not cut.
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
}

func newOptionalSettings(options []Option) optionalSettings {
	settings := optionalSettings{
		readTimeout:       defaultReadTimeout,
		readHeaderTimeout: defaultReadHeaderTimeout,
		shutdownTimeout:   defaultShutdownTimeout,
	}
	for _, option := range options {
		option(&settings)
	}
	return settings
}

// ReadTimeout sets the read timeout of the server, 10s by default.
func ReadTimeout(timeout time.Duration) Option {
	return func(s *optionalSettings) { s.readTimeout = timeout }
}

// ReadHeaderTimeout sets the header read timeout of the server, 1s by default.
func ReadHeaderTimeout(timeout time.Duration) Option {
	return func(s *optionalSettings) { s.readHeaderTimeout = timeout }
}

// WriteTimeout sets the response write timeout of the server.
// It is disabled by default.
func WriteTimeout(timeout time.Duration) Option {
	return func(s *optionalSettings) { s.writeTimeout = timeout }
}

// ShutdownTimeout sets the time given to the server to shut down
// gracefully once its context is canceled, 3s by default.
func ShutdownTimeout(timeout time.Duration) Option {
	return func(s *optionalSettings) { s.shutdownTimeout = timeout }
}
