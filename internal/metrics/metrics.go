// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ChainSafe/jellyfish/internal/httpserver"
	"github.com/ChainSafe/jellyfish/internal/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "metrics"))

// ErrServerDoneBeforeReady is returned when the server exits before listening.
var ErrServerDoneBeforeReady = errors.New("server terminated before being ready")

// Runner runs a server until its context is canceled.
type Runner interface {
	Run(ctx context.Context, ready chan<- struct{}, done chan<- error)
}

// scrapeWriteTimeout bounds the time spent writing a scrape response.
const scrapeWriteTimeout = 10 * time.Second

// Server is a metrics http server exposing the
// Prometheus metrics of the gatherer given at /metrics.
type Server struct {
	runner Runner
	cancel context.CancelFunc
	done   chan error
}

// NewServer is a constructor for metrics server
func NewServer(address string, gatherer prometheus.Gatherer) (s *Server) {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).
		Methods(http.MethodGet)
	return &Server{
		runner: httpserver.New("metrics", address, router, logger,
			httpserver.WriteTimeout(scrapeWriteTimeout)),
	}
}

// Start will start the metrics server and returns once it is listening.
func (s *Server) Start() (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	ready := make(chan struct{})
	s.done = make(chan error)

	go s.runner.Run(ctx, ready, s.done)

	select {
	case <-ready:
		return nil
	case err := <-s.done:
		close(s.done)
		cancel()
		if err != nil {
			return err
		}
		return ErrServerDoneBeforeReady
	}
}

// Stop will stop the metrics server
func (s *Server) Stop() (err error) {
	s.cancel()
	timer := time.NewTimer(30 * time.Second)
	defer timer.Stop()
	select {
	case err := <-s.done:
		close(s.done)
		return err
	case <-timer.C:
		return errors.New("metrics server exit timeout")
	}
}

// Address returns the address the server listens on, once started.
func (s *Server) Address() string {
	server, ok := s.runner.(*httpserver.Server)
	if !ok {
		return ""
	}
	return server.GetAddress()
}
