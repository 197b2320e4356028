// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/appserver/internal/features/metrics"
	"github.com/relaykit/appserver/internal/tracing"
	"github.com/relaykit/appserver/pkg/appserver"
)

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestMetricsFeatureIsOptional(t *testing.T) {
	assert.True(t, metrics.New(nil).Optional())
}

func TestMetricsFeatureCollectOptionsDefaultAddress(t *testing.T) {
	f := metrics.New(nil)
	opts := appserver.NewOptions("prog")
	f.CollectOptions(opts)
	opts.Seal()

	doc := opts.Document(nil)
	assert.Equal(t, "127.0.0.1:9090", doc["metrics.address"])
}

func TestMetricsFeatureStartServesMetricsAndStopReleasesPort(t *testing.T) {
	provider, err := tracing.NewProvider("metrics-test", "0.0.0-test")
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	f := metrics.New(provider)
	opts := appserver.NewOptions("prog")
	f.CollectOptions(opts)
	addr := freePort(t)
	require.NoError(t, opts.Parse([]string{"--metrics.address", addr}))

	require.NoError(t, f.Start())

	var resp *http.Response
	for i := 0; i < 20; i++ {
		resp, err = http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NoError(t, f.Stop())

	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err, "expected Stop to release the listening port")
	ln.Close()
}

func TestMetricsFeatureStopBeforeStartIsSafe(t *testing.T) {
	f := metrics.New(nil)
	assert.NoError(t, f.Stop())
}
