// Package stream opens research sessions against the olexi host and decodes
// the server-push event stream carried on the response body.
//
// One Open call is one session: the caller pulls events with Stream.Next in
// arrival order, and the stream ends when the host closes the response or
// the session's time budget runs out. Frames are reassembled independently
// of how the transport chunks the bytes.
package stream

import (
	"encoding/json"
	"fmt"
)

// Kind tags an event variant. Consumers should switch over it exhaustively;
// adding a kind is a compile-visible change, not a string comparison.
type Kind int

const (
	// KindProgress carries opaque liveness updates while the host works.
	KindProgress Kind = iota

	// KindResultsPreview carries the first batch of search hits.
	KindResultsPreview

	// KindAnswer carries the summarised answer markdown. Normally terminal
	// for a prompt, though the protocol does not forbid further frames.
	KindAnswer

	// KindError carries a user-displayable failure from the host. It is a
	// content event, not a transport fault; the stream stays usable.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindResultsPreview:
		return "results_preview"
	case KindAnswer:
		return "answer"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ResultItem is one search hit in a results preview.
type ResultItem struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Metadata string `json:"metadata,omitempty"`
}

// ResultsPreview is the payload of a results_preview event.
type ResultsPreview struct {
	Items []ResultItem `json:"items"`
}

// Answer is the payload of an answer event. URL, when present, points at
// the full result set on the source database.
type Answer struct {
	Markdown string `json:"markdown"`
	URL      string `json:"url,omitempty"`
}

// Failure is the payload of an error event.
type Failure struct {
	Detail string `json:"detail"`
}

// Event is one decoded frame. Exactly the payload field matching Kind is
// populated; Progress keeps its payload raw because the host does not
// commit to a shape for it.
type Event struct {
	Kind     Kind
	Progress json.RawMessage
	Preview  *ResultsPreview
	Answer   *Answer
	Failure  *Failure
}
