// Package testutil provides helpers for tests that fake the research host.
package testutil

import (
	"net/http"
	"testing"
)

// SSEFrame is one event to emit from a fake host.
type SSEFrame struct {
	Type string // event: value
	Data string // data: value
}

// Wire renders the frame in its on-the-wire form, including the terminating
// blank line.
func (f SSEFrame) Wire() string {
	return "event: " + f.Type + "\ndata: " + f.Data + "\n\n"
}

// ServeFrames returns a handler that emits the given frames as an event
// stream, flushing after each one so the client sees them as they are
// written.
//
// Example:
//
//	srv := httptest.NewServer(testutil.ServeFrames(t,
//	    testutil.SSEFrame{Type: "progress", Data: `{"stage":"searching"}`},
//	    testutil.SSEFrame{Type: "answer", Data: `{"markdown":"done"}`},
//	))
func ServeFrames(t *testing.T, frames ...SSEFrame) http.HandlerFunc {
	t.Helper()

	var chunks []string
	for _, f := range frames {
		chunks = append(chunks, f.Wire())
	}
	return ServeChunks(t, chunks...)
}

// ServeChunks returns a handler that emits the given raw byte chunks with a
// flush between each. Splitting one frame's text across several chunks
// exercises reassembly at arbitrary byte boundaries.
func ServeChunks(t *testing.T, chunks ...string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer does not support flushing")
		}
		for _, c := range chunks {
			if _, err := w.Write([]byte(c)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
