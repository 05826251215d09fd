// SPDX-License-Identifier: MIT

package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/reportstream/internal/config"
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() config.AppConfig {
	cfg := config.Defaults()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Store.Backend = config.StoreMemory
	cfg.Bus.Backend = config.BusMemory
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.SSE.KeepAliveInterval = time.Hour
	cfg.Version = "test"
	return cfg
}

func startApp(t *testing.T, cfg config.AppConfig) (*App, string, func() error) {
	t.Helper()
	app, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case <-app.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("app exited before listening: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("app did not start listening")
	}

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("app did not stop")
			return nil
		}
	}
	return app, "http://" + app.Addr().String(), stop
}

func TestNew_UnknownBus(t *testing.T) {
	cfg := testConfig()
	cfg.Bus.Backend = "carrier-pigeon"
	_, err := New(context.Background(), cfg)
	require.ErrorIs(t, err, ErrUnknownBus)
}

func TestNew_UnknownStore(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = "tape"
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestRun_ListenFailure(t *testing.T) {
	cfg := testConfig()
	cfg.ListenAddr = "256.0.0.1:bad"
	app, err := New(context.Background(), cfg)
	require.NoError(t, err)

	err = app.Run(context.Background())
	require.ErrorIs(t, err, ErrServerStartFailed)
}

func TestApp_StatusUpdateReachesStream(t *testing.T) {
	_, base, stop := startApp(t, testConfig())
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	user := uuid.New()

	resp, err := client.Post(base+"/new/report?user_id="+user.String(), "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_ = resp.Body.Close()
	assert.Equal(t, model.StatusPending, created.Status)

	streamCtx, endStream := context.WithCancel(context.Background())
	defer endStream()
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, base+"/sse?user_id="+user.String(), nil)
	require.NoError(t, err)
	stream, err := client.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(stream.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	// the feed consumer subscribes asynchronously and the memory bus drops
	// messages nobody listens to, so publish until the event shows up
	body := `{"id":"` + created.ReportID.String() + `","status":"queued"}`
	put := func() {
		r, err := http.NewRequest(http.MethodPut, base+"/report?user_id="+user.String(), strings.NewReader(body))
		require.NoError(t, err)
		r.Header.Set("Content-Type", "application/json")
		res, err := client.Do(r)
		require.NoError(t, err)
		_ = res.Body.Close()
		require.Equal(t, http.StatusAccepted, res.StatusCode)
	}
	put()

	retry := time.NewTicker(200 * time.Millisecond)
	defer retry.Stop()
	deadline := time.After(5 * time.Second)
	var data string
	for data == "" {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			if strings.HasPrefix(line, "data: ") {
				data = strings.TrimPrefix(line, "data: ")
			}
		case <-retry.C:
			put()
		case <-deadline:
			t.Fatal("no status event received")
		}
	}
	assert.JSONEq(t, `{"id":"`+created.ReportID.String()+`","status":"queued"}`, data)

	endStream()
	for range lines {
	}
	require.NoError(t, stop())
}

func TestApp_ShutdownEndsOpenStreams(t *testing.T) {
	_, base, stop := startApp(t, testConfig())
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	stream, err := client.Get(base + "/sse?user_id=" + uuid.NewString())
	require.NoError(t, err)
	defer stream.Body.Close()

	require.NoError(t, stop())

	// the server closed the stream, so reading reaches EOF
	sc := bufio.NewScanner(stream.Body)
	for sc.Scan() {
	}
}

func TestApp_Readiness(t *testing.T) {
	_, base, stop := startApp(t, testConfig())
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	resp, err := client.Get(base + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, stop())
}
