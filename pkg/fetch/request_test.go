package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const trainsURL = "https://rail.example/api/trains"

func TestFetchTwoChunkScenario(t *testing.T) {
	opener := &chunkOpener{chunks: []string{`{"trains":`, `[]}`}}
	res, err := NewFetcher(opener).Fetch(context.Background(), trainsURL, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := map[string]any{"trains": []any{}}
	if !reflect.DeepEqual(res.Value, want) {
		t.Fatalf("expected %#v, got %#v", want, res.Value)
	}
	if res.Chunks != 2 || res.Bytes != len(`{"trains":[]}`) {
		t.Fatalf("unexpected chunk accounting %+v", res)
	}
	if !opener.closed {
		t.Fatalf("stream was not closed")
	}
}

func TestFetchMatchesDirectDecodeForEverySplit(t *testing.T) {
	bodies := []string{
		`{"trains":[{"trainNumber":1,"departureDate":"2026-10-19","cancelled":false}]}`,
		`[1, 2.5, "three", null, true, {"nested": {"deep": []}}]`,
		`"just a string"`,
		`42`,
		`{"id":9007199254740993,"ratio":1e-7}`,
		` {"padded": "whitespace"} `,
	}

	for _, body := range bodies {
		var want any
		dec := json.NewDecoder(strings.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&want); err != nil {
			t.Fatalf("bad fixture %q: %v", body, err)
		}

		for _, chunks := range splits(body) {
			res, err := NewFetcher(&chunkOpener{chunks: chunks}).Fetch(context.Background(), trainsURL, nil)
			if err != nil {
				t.Fatalf("Fetch %q split %q: %v", body, chunks, err)
			}
			if !reflect.DeepEqual(res.Value, want) {
				t.Fatalf("split %q: expected %#v, got %#v", chunks, want, res.Value)
			}
			if string(res.Raw) != body {
				t.Fatalf("split %q: raw body %q does not match %q", chunks, res.Raw, body)
			}
		}
	}
}

func TestFetchKeepsNumberText(t *testing.T) {
	opener := &chunkOpener{chunks: []string{`{"id":90071992`, `54740993,"speed":12.50}`}}
	res, err := NewFetcher(opener).Fetch(context.Background(), trainsURL, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	obj, ok := res.Value.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", res.Value)
	}
	if got := obj["id"]; got != json.Number("9007199254740993") {
		t.Fatalf("expected exact integer text, got %#v", got)
	}
	if got := obj["speed"]; got != json.Number("12.50") {
		t.Fatalf("expected exact decimal text, got %#v", got)
	}

	out, err := json.Marshal(res.Value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"id":9007199254740993,"speed":12.50}` {
		t.Fatalf("re-encoded value changed: %s", out)
	}
}

// splits returns the body as one piece, every two-piece split, and single bytes.
func splits(body string) [][]string {
	out := [][]string{{body}}
	for i := 1; i < len(body); i++ {
		out = append(out, []string{body[:i], body[i:]})
	}
	bytesSplit := make([]string, 0, len(body))
	for i := 0; i < len(body); i++ {
		bytesSplit = append(bytesSplit, body[i:i+1])
	}
	return append(out, bytesSplit)
}

func TestFetchTransportFailureAtEveryPoint(t *testing.T) {
	chunks := []string{`{"trains":`, `[{"id":`, `7}]}`}
	for failAfter := 0; failAfter <= len(chunks)-1; failAfter++ {
		opener := &chunkOpener{chunks: chunks, failAfter: failAfter, failErr: errConnReset}
		res, err := NewFetcher(opener).Fetch(context.Background(), trainsURL, nil)
		if res != nil {
			t.Fatalf("failAfter=%d: expected no result, got %+v", failAfter, res)
		}
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("failAfter=%d: expected transport error, got %v", failAfter, err)
		}
		if !errors.Is(err, errConnReset) {
			t.Fatalf("failAfter=%d: expected cause to be preserved, got %v", failAfter, err)
		}
	}
}

func TestFetchConnectFailure(t *testing.T) {
	opener := &chunkOpener{openErr: errors.New("dial tcp: lookup rail.example: no such host")}
	req := NewFetcher(opener).NewRequest(trainsURL, nil)
	_, err := req.Do(context.Background())
	if KindOf(err) != KindTransport {
		t.Fatalf("expected transport kind, got %v", err)
	}
	if req.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", req.State())
	}
}

func TestFetchMalformedPayload(t *testing.T) {
	cases := map[string][]string{
		"truncated": {`{"trains":`, `[`},
		"non-json":  {"Service ", "Unavailable"},
		"trailing":  {`{"a":1}`, ` {"b":2}`},
		"garbage":   {`[1]`, ` x`},
		"empty":     {},
	}
	for name, chunks := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := NewFetcher(&chunkOpener{chunks: chunks, status: 503}).Fetch(context.Background(), trainsURL, nil)
			if res != nil {
				t.Fatalf("expected no result, got %+v", res)
			}
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("expected malformed payload, got %v", err)
			}
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %T", err)
			}
			if string(fe.Raw) != strings.Join(chunks, "") {
				t.Fatalf("expected raw body to be kept, got %q", fe.Raw)
			}
			if fe.StatusCode != 503 {
				t.Fatalf("expected status to be recorded, got %d", fe.StatusCode)
			}
		})
	}
}

func TestFetchNon2xxStillParses(t *testing.T) {
	opener := &chunkOpener{chunks: []string{`{"error":"not found"}`}, status: 404}
	res, err := NewFetcher(opener).Fetch(context.Background(), trainsURL, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.StatusCode != 404 {
		t.Fatalf("expected status 404, got %d", res.StatusCode)
	}
}

func TestRequestStateTransitions(t *testing.T) {
	obs := &recordingObserver{}
	opener := &chunkOpener{chunks: []string{`[`, `]`}}
	req := NewFetcher(opener, WithObserver(obs)).NewRequest(trainsURL, nil)
	if req.State() != StateIdle {
		t.Fatalf("expected idle before Do, got %s", req.State())
	}

	if _, err := req.Do(context.Background()); err != nil {
		t.Fatalf("Do: %v", err)
	}

	want := [][2]State{
		{StateIdle, StateConnecting},
		{StateConnecting, StateReceiving},
		{StateReceiving, StateCompleted},
	}
	if !reflect.DeepEqual(obs.transitions, want) {
		t.Fatalf("unexpected transitions %v", obs.transitions)
	}
	if !reflect.DeepEqual(obs.sizes, []int{1, 1}) {
		t.Fatalf("unexpected chunk sizes %v", obs.sizes)
	}
	if !req.State().Terminal() {
		t.Fatalf("expected terminal state")
	}
}

func TestRequestRunsOnlyOnce(t *testing.T) {
	req := NewFetcher(&chunkOpener{chunks: []string{`{}`}}).NewRequest(trainsURL, nil)
	if _, err := req.Do(context.Background()); err != nil {
		t.Fatalf("first Do: %v", err)
	}
	if _, err := req.Do(context.Background()); !errors.Is(err, ErrRequestUsed) {
		t.Fatalf("expected ErrRequestUsed, got %v", err)
	}
	if req.State() != StateCompleted {
		t.Fatalf("second Do must not change state, got %s", req.State())
	}
}

func TestFetchCancelledBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	obs := &cancelOnChunk{cancel: cancel}
	opener := &chunkOpener{chunks: []string{`{"trains":`, `[]}`}}

	_, err := NewFetcher(opener, WithObserver(obs)).Fetch(ctx, trainsURL, nil)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled transport error, got %v", err)
	}
}

type cancelOnChunk struct {
	cancel context.CancelFunc
}

func (c *cancelOnChunk) Transition(string, State, State) {}
func (c *cancelOnChunk) Chunk(string, int, int)          { c.cancel() }

func TestResponseBufferUnreadableUntilSealed(t *testing.T) {
	buf := &responseBuffer{}
	buf.append([]byte("ab"))
	if _, err := buf.bytes(); !errors.Is(err, errBufferOpen) {
		t.Fatalf("expected errBufferOpen, got %v", err)
	}
	buf.append([]byte("c"))
	buf.seal()
	buf.append([]byte("ignored"))

	got, err := buf.bytes()
	if err != nil || string(got) != "abc" {
		t.Fatalf("unexpected buffer contents %q err=%v", got, err)
	}
}
