// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Server_StartStop(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jellyfish_test",
		Name:      "things_total",
	})
	registry.MustRegister(counter)
	counter.Add(3)

	server := NewServer("127.0.0.1:0", registry)
	err := server.Start()
	require.NoError(t, err)

	response, err := http.Get("http://" + server.Address() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	err = response.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, string(body), "jellyfish_test_things_total 3")

	response, err = http.Post("http://"+server.Address()+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	err = response.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, response.StatusCode)

	err = server.Stop()
	require.NoError(t, err)
}

type runnerFunc func(ctx context.Context, ready chan<- struct{}, done chan<- error)

func (f runnerFunc) Run(ctx context.Context, ready chan<- struct{}, done chan<- error) {
	f(ctx, ready, done)
}

func Test_Server_Start_failure(t *testing.T) {
	t.Parallel()

	errTest := errors.New("test error")
	testCases := map[string]struct {
		runErr     error
		errWrapped error
	}{
		"run error":  {runErr: errTest, errWrapped: errTest},
		"early exit": {errWrapped: ErrServerDoneBeforeReady},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := &Server{
				runner: runnerFunc(func(_ context.Context, _ chan<- struct{}, done chan<- error) {
					done <- testCase.runErr
				}),
			}

			err := server.Start()
			assert.ErrorIs(t, err, testCase.errWrapped)
			assert.Empty(t, server.Address())
		})
	}
}
