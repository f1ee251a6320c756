package stream

import (
	"bytes"
	"encoding/json"
	"strings"
)

// frame is one raw wire frame: an event name plus the concatenation of its
// data lines.
type frame struct {
	kind string
	data string
}

// decoder reassembles frames from arbitrarily chunked bytes. Feed appends a
// chunk and returns every frame completed by it; a frame split across chunks
// stays buffered until its terminating blank line arrives. The decoder holds
// no opinion on frame contents, only on framing.
type decoder struct {
	buf []byte
}

var frameSep = []byte("\n\n")

func (d *decoder) feed(p []byte) []frame {
	d.buf = append(d.buf, p...)

	var frames []frame
	for {
		i := bytes.Index(d.buf, frameSep)
		if i < 0 {
			return frames
		}
		raw := string(d.buf[:i])
		d.buf = d.buf[i+len(frameSep):]

		f, ok := parseFrame(raw)
		if ok {
			frames = append(frames, f)
		}
	}
}

// parseFrame splits a raw frame into its event name and data. Multiple data
// lines are trimmed and concatenated. A frame that never names an event is
// dropped; unrecognised field prefixes within a frame are ignored.
func parseFrame(raw string) (frame, bool) {
	var f frame
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "event:"):
			f.kind = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			f.data += strings.TrimSpace(line[len("data:"):])
		}
	}
	if f.kind == "" {
		return frame{}, false
	}
	return f, true
}

// decodeEvent turns a wire frame into a typed Event. Unknown event names and
// undecodable payloads report !ok so the caller can skip the frame; a bad
// frame never poisons the session.
func decodeEvent(f frame) (Event, bool) {
	payload := f.data
	if payload == "" {
		payload = "{}"
	}

	switch f.kind {
	case "progress":
		if !json.Valid([]byte(payload)) {
			return Event{}, false
		}
		return Event{Kind: KindProgress, Progress: json.RawMessage(payload)}, true
	case "results_preview":
		var p ResultsPreview
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return Event{}, false
		}
		return Event{Kind: KindResultsPreview, Preview: &p}, true
	case "answer":
		var a Answer
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return Event{}, false
		}
		return Event{Kind: KindAnswer, Answer: &a}, true
	case "error":
		var e Failure
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return Event{}, false
		}
		return Event{Kind: KindError, Failure: &e}, true
	default:
		return Event{}, false
	}
}
