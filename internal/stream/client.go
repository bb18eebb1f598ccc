package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/skytrack/skytrack/internal/metrics"
)

// writeDeadline bounds each individual SSE write so a stalled client
// cannot hold a connection open indefinitely.
const writeDeadline = 30 * time.Second

// client wraps one SSE connection. All writes go through writeFrame so
// the deadline, flush, and byte accounting stay in one place.
type client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	ip      string
	logger  *slog.Logger

	messagesSent int64
	bytesSent    int64
}

func (c *client) writeFrame(frame string) error {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}

	n, err := fmt.Fprint(c.w, frame)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.flusher.Flush()
	c.bytesSent += int64(n)
	metrics.AddStreamBytes(int64(n))
	return nil
}

// send marshals v as JSON and emits it as a named SSE event.
func (c *client) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	if err := c.writeFrame(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)); err != nil {
		return err
	}

	c.messagesSent++
	metrics.IncStreamMessages()
	return nil
}

// sendKeepalive emits an SSE comment line to hold the connection open
// through idle proxies.
func (c *client) sendKeepalive() error {
	if err := c.writeFrame(":\n\n"); err != nil {
		return fmt.Errorf("keepalive: %w", err)
	}
	return nil
}
