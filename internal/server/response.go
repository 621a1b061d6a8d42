package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// header is one response header. Headers are kept as an ordered slice,
// not a map: the bytes on the wire are deterministic, which matters for
// device firmware that scans responses with fixed string matching.
type header struct {
	name  string
	value string
}

// writeHead writes the status line and headers. Connection: close is
// always appended; the server speaks one request per connection.
func writeHead(w io.Writer, status int, headers []header) error {
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status)); err != nil {
		return fmt.Errorf("failed to write status line: %w", err)
	}
	for _, h := range headers {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", h.name, h.value); err != nil {
			return fmt.Errorf("failed to write header %s: %w", h.name, err)
		}
	}
	if _, err := io.WriteString(w, "Connection: close\r\n\r\n"); err != nil {
		return fmt.Errorf("failed to terminate headers: %w", err)
	}
	return nil
}

// writeJSON marshals v and writes a complete JSON response.
// Returns the body length for access logging.
func writeJSON(w io.Writer, status int, v any, extra ...header) (int64, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal response body: %w", err)
	}

	headers := []header{
		{"Content-Type", "application/json"},
		{"Content-Length", fmt.Sprintf("%d", len(body))},
	}
	headers = append(headers, extra...)

	if err := writeHead(w, status, headers); err != nil {
		return 0, err
	}
	n, err := w.Write(body)
	if err != nil {
		return int64(n), fmt.Errorf("failed to write response body: %w", err)
	}
	return int64(n), nil
}

// errorBody is the JSON payload of every non-2xx response, so fleet
// tooling can parse failures uniformly.
type errorBody struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w io.Writer, status int, msg string, extra ...header) (int64, error) {
	return writeJSON(w, status, errorBody{Error: msg}, extra...)
}
