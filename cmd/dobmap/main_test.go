package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeEndsStreamsOnShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	connected := make(chan struct{})
	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": connected\n\n")
		w.(http.Flusher).Flush()
		close(connected)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	jobDone := make(chan struct{})
	served := make(chan error, 1)
	go func() {
		served <- serve(ctx, ln, stream, func(ctx context.Context) {
			<-ctx.Done()
			close(jobDone)
		})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	<-connected

	start := time.Now()
	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
		assert.Less(t, time.Since(start), shutdownTimeout/2)
	case <-time.After(shutdownTimeout / 2):
		t.Fatal("serve did not return while a stream was open")
	}
	<-jobDone
}

func TestServeListenerFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	err = serve(context.Background(), ln, http.NotFoundHandler())
	assert.Error(t, err)
}
