package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowforge/dagmanager/pkg/core"
	"github.com/flowforge/dagmanager/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_RelaysEventsToClients(t *testing.T) {
	emitter := metrics.New()
	b := metrics.NewBroadcaster(emitter)

	srv := httptest.NewServer(b)
	defer srv.Close()

	stop := make(chan struct{})
	go b.Run(stop)
	defer close(stop)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	emitter.FlowEvent(&core.FlowStateEvent{Name: core.FlowSucceeded})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), "FLOW_SUCCEEDED")
}
