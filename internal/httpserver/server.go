// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Logger is the logger used by the HTTP server
// to report its listening address and shutdown.
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Server is an HTTP server implementation, which uses
// the HTTP handler provided.
type Server struct {
	name       string
	address    string
	addressSet chan struct{}
	handler    http.Handler
	logger     Logger
	optional   optionalSettings
}

// New creates a new HTTP server with a name, listening on
// the address specified and using the HTTP handler provided.
func New(name, address string, handler http.Handler,
	logger Logger, options ...Option) *Server {
	return &Server{
		name:       name,
		address:    address,
		addressSet: make(chan struct{}),
		handler:    handler,
		logger:     logger,
		optional:   newOptionalSettings(options),
	}
}

// Run runs the HTTP server until ctx is canceled.
// The ready channel is closed once the server is listening
// and the done channel is sent the exit error of the server.
func (s *Server) Run(ctx context.Context, ready chan<- struct{}, done chan<- error) {
	server := http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadTimeout:       s.optional.readTimeout,
		ReadHeaderTimeout: s.optional.readHeaderTimeout,
		WriteTimeout:      s.optional.writeTimeout,
	}

	crashed := make(chan struct{})
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-ctx.Done():
		case <-crashed:
			return
		}

		s.logger.Warn(s.name + " http server shutting down: " + ctx.Err().Error())
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), s.optional.shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			s.logger.Error(fmt.Sprintf("%s http server failed shutting down: %s", s.name, err))
		}
	}()

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		close(s.addressSet)
		close(crashed)
		<-shutdownDone
		done <- err
		return
	}

	s.address = listener.Addr().String()
	close(s.addressSet)

	// note: no further write to s.address below this point
	close(ready)

	s.logger.Info(s.name + " http server listening on " + s.address)
	err = server.Serve(listener)

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		close(crashed)
		<-shutdownDone
		done <- err
		return
	}

	<-shutdownDone
	done <- nil
}

// GetAddress obtains the address the HTTP server is listening on.
// It blocks until the server starts listening or fails to listen.
func (s *Server) GetAddress() (address string) {
	<-s.addressSet
	return s.address
}
