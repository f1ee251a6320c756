package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/olexi-ai/olexi-go/internal/log"
	"github.com/olexi-ai/olexi-go/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return New(Config{
		BaseURL:        srv.URL,
		ExtensionID:    "olexi-local",
		UserAgent:      "olexi-go/test",
		SessionTimeout: 5 * time.Second,
		HTTPClient:     srv.Client(),
	}, log.NewNop())
}

func collect(t *testing.T, st *Stream) []Event {
	t.Helper()
	var events []Event
	for st.Next() {
		events = append(events, st.Event())
	}
	return events
}

func TestOpenSendsSessionHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		testutil.ServeFrames(t, testutil.SSEFrame{Type: "progress", Data: "{}"})(w, r)
	}))
	defer srv.Close()

	st, err := testClient(t, srv).Open(context.Background(), "native title", Credentials{
		Token:       "tok-123",
		Fingerprint: "00112233445566778899aabbccddeeff",
	})
	require.NoError(t, err)
	defer st.Close()
	collect(t, st)

	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "text/event-stream", got.Get("Accept"))
	assert.Equal(t, "olexi-local", got.Get("X-Extension-Id"))
	assert.Equal(t, "tok-123", got.Get("X-Session-Token"))
	assert.Equal(t, "00112233445566778899aabbccddeeff", got.Get("X-Extension-Fingerprint"))
	_, err = uuid.Parse(got.Get("X-Request-Id"))
	assert.NoError(t, err, "X-Request-Id should be a UUID")
}

func TestStreamDeliversEventsInOrder(t *testing.T) {
	// One frame split across chunks at awkward byte boundaries, then a
	// second frame delivered whole.
	srv := httptest.NewServer(testutil.ServeChunks(t,
		"event: results_pre",
		"view\ndata: {\"items\":[{\"title\":\"Mabo v Queensland (No 2)\",",
		"\"url\":\"http://db.example/mabo\",\"metadata\":\"HCA 1992\"}]}\n",
		"\nevent: answer\ndata: {\"markdown\":\"# Held\",\"url\":\"http://db.example/r\"}\n\n",
	))
	defer srv.Close()

	st, err := testClient(t, srv).Open(context.Background(), "native title", Credentials{Token: "t", Fingerprint: "f"})
	require.NoError(t, err)
	defer st.Close()

	events := collect(t, st)
	require.NoError(t, st.Err())
	require.Len(t, events, 2)

	require.Equal(t, KindResultsPreview, events[0].Kind)
	require.Len(t, events[0].Preview.Items, 1)
	assert.Equal(t, "Mabo v Queensland (No 2)", events[0].Preview.Items[0].Title)

	require.Equal(t, KindAnswer, events[1].Kind)
	assert.Equal(t, "# Held", events[1].Answer.Markdown)
}

func TestStreamSkipsMalformedFrames(t *testing.T) {
	srv := httptest.NewServer(testutil.ServeFrames(t,
		testutil.SSEFrame{Type: "progress", Data: "{}"},
		testutil.SSEFrame{Type: "heartbeat", Data: "{}"},
		testutil.SSEFrame{Type: "answer", Data: "{not json"},
		testutil.SSEFrame{Type: "answer", Data: `{"markdown":"still here"}`},
	))
	defer srv.Close()

	st, err := testClient(t, srv).Open(context.Background(), "q", Credentials{Token: "t", Fingerprint: "f"})
	require.NoError(t, err)
	defer st.Close()

	events := collect(t, st)
	require.NoError(t, st.Err())
	require.Len(t, events, 2)
	assert.Equal(t, KindProgress, events[0].Kind)
	assert.Equal(t, "still here", events[1].Answer.Markdown)
}

func TestStreamErrorEventIsNotTerminal(t *testing.T) {
	srv := httptest.NewServer(testutil.ServeFrames(t,
		testutil.SSEFrame{Type: "error", Data: `{"detail":"source unavailable"}`},
		testutil.SSEFrame{Type: "answer", Data: `{"markdown":"partial"}`},
	))
	defer srv.Close()

	st, err := testClient(t, srv).Open(context.Background(), "q", Credentials{Token: "t", Fingerprint: "f"})
	require.NoError(t, err)
	defer st.Close()

	events := collect(t, st)
	require.NoError(t, st.Err())
	require.Len(t, events, 2)
	assert.Equal(t, "source unavailable", events[0].Failure.Detail)
	assert.Equal(t, KindAnswer, events[1].Kind)
}

func TestOpenTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid or expired session token"}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Open(context.Background(), "q", Credentials{Token: "stale", Fingerprint: "f"})
	require.ErrorIs(t, err, ErrTokenRejected)
	assert.Contains(t, err.Error(), "Invalid or expired session token")
}

func TestOpenUnauthorizedWithoutTokenDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid fingerprint"}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Open(context.Background(), "q", Credentials{Token: "t", Fingerprint: "bad"})
	require.NotErrorIs(t, err, ErrTokenRejected)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusUnauthorized, svcErr.Status)
	assert.Equal(t, "Invalid fingerprint", svcErr.Detail)
}

func TestOpenServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"Rate limit exceeded. Try again later."}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Open(context.Background(), "q", Credentials{Token: "t", Fingerprint: "f"})

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusTooManyRequests, svcErr.Status)
	assert.Equal(t, "Rate limit exceeded. Try again later.", svcErr.Detail)
}

func TestOpenPlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Open(context.Background(), "q", Credentials{Token: "t", Fingerprint: "f"})

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "upstream exploded", svcErr.Detail)
}

func TestOpenRejectsWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not a stream</html>"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Open(context.Background(), "q", Credentials{Token: "t", Fingerprint: "f"})
	require.ErrorIs(t, err, ErrContentType)
}

func TestOpenNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := testClient(t, srv)
	srv.Close()

	_, err := client.Open(context.Background(), "q", Credentials{Token: "t", Fingerprint: "f"})
	require.ErrorIs(t, err, ErrNetwork)
}

func TestSessionTimeoutMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: progress\ndata: {}\n\n"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := New(Config{
		BaseURL:        srv.URL,
		ExtensionID:    "olexi-local",
		UserAgent:      "olexi-go/test",
		SessionTimeout: 100 * time.Millisecond,
		HTTPClient:     srv.Client(),
	}, log.NewNop())

	st, err := client.Open(context.Background(), "q", Credentials{Token: "t", Fingerprint: "f"})
	require.NoError(t, err)
	defer st.Close()

	// The event already on the wire arrives, then the budget expires.
	require.True(t, st.Next())
	assert.Equal(t, KindProgress, st.Event().Kind)
	assert.False(t, st.Next())
	require.ErrorIs(t, st.Err(), ErrTimeout)
}
