// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/jeranaias/ragterm/internal/model"
)

// =============================================================================
// READER TESTS
// =============================================================================

func TestReader_Frames(t *testing.T) {
	input := "event: message\ndata: {\"a\":1}\n\n" +
		": keep-alive\n\n" +
		"id: 7\nretry: 100\ndata: line1\ndata: line2\n\n" +
		"event: FatalError\r\ndata:{}\r\n\r\n"

	r := NewReader(strings.NewReader(input))

	want := []RawEvent{
		{Name: "message", Data: []byte(`{"a":1}`)},
		{Name: "", Data: []byte("line1\nline2")},
		{Name: "FatalError", Data: []byte("{}")},
	}
	for i, w := range want {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("frame %d: unexpected error %v", i, err)
		}
		if got.Name != w.Name || string(got.Data) != string(w.Data) {
			t.Errorf("frame %d = {%q %q}, want {%q %q}", i, got.Name, got.Data, w.Name, w.Data)
		}
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_UnterminatedFinalFrame(t *testing.T) {
	r := NewReader(strings.NewReader("event: FatalError"))

	got, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != FatalEventName {
		t.Errorf("Name = %q, want FatalError", got.Name)
	}
}

func TestReader_FrameTooLarge(t *testing.T) {
	big := "data: " + strings.Repeat("x", MaxFrameSize+1) + "\n\n"
	r := NewReader(strings.NewReader(big))

	if _, err := r.Next(); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}

// endlessLine is a stream that never sends a newline.
type endlessLine struct {
	served int
}

func (e *endlessLine) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	e.served += len(p)
	return len(p), nil
}

func TestReader_LineWithoutNewlineIsBounded(t *testing.T) {
	src := &endlessLine{}
	r := NewReader(io.MultiReader(strings.NewReader("data: "), src))

	if _, err := r.Next(); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	if limit := MaxFrameSize + 64*1024; src.served > limit {
		t.Errorf("reader consumed %d bytes before giving up, want at most %d", src.served, limit)
	}
}

// =============================================================================
// DECODE TESTS
// =============================================================================

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name string
		data string
		want model.Event
	}{
		{"content", `{"type":"content","delta":"Hi"}`, model.ContentEvent{Delta: "Hi"}},
		{"reasoning", `{"type":"reasoning","steps":["a","b"]}`, model.ReasoningEvent{Steps: []string{"a", "b"}}},
		{"tool_start", `{"type":"tool_start","tool":"calc"}`, model.ToolStartEvent{Tool: "calc"}},
		{"sources", `{"type":"sources","sources":[{"id":1,"name":"notes.txt","content":"c","doc_id":"d1"}]}`,
			model.SourcesEvent{Sources: []model.Source{{ID: 1, Name: "notes.txt", Content: "c", DocumentID: "d1"}}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(RawEvent{Name: "message", Data: []byte(tc.data)})
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Decode = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestDecode_FatalErrorIgnoresPayloadShape(t *testing.T) {
	payloads := map[string]string{
		"object":  `{"message":"backend exploded"}`,
		"string":  `"backend exploded"`,
		"garbage": `backend exploded`,
		"empty":   ``,
	}

	for name, data := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(RawEvent{Name: FatalEventName, Data: []byte(data)})
			var fatal *FatalError
			if !errors.As(err, &fatal) {
				t.Fatalf("expected *FatalError, got %v", err)
			}
			if name != "empty" && fatal.Message != "backend exploded" {
				t.Errorf("Message = %q", fatal.Message)
			}
		})
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode(RawEvent{Name: "message", Data: []byte(`{"type":"content",`)})
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode(RawEvent{Data: []byte(`{"type":"telemetry"}`)})
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}

// =============================================================================
// CONSUME TESTS
// =============================================================================

func TestConsume_ArrivalOrder(t *testing.T) {
	input := sse("", `{"type":"content","delta":"a"}`) +
		sse("message", `{"type":"tool_start","tool":"search"}`) +
		sse("message", `{"type":"content","delta":"b"}`) +
		sse("message", "[DONE]") +
		sse("message", `{"type":"content","delta":"never"}`)

	var got []model.Event
	err := Consume(context.Background(), strings.NewReader(input), func(ev model.Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}

	want := []model.Event{
		model.ContentEvent{Delta: "a"},
		model.ToolStartEvent{Tool: "search"},
		model.ContentEvent{Delta: "b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %#v, want %#v", got, want)
	}
}

func TestConsume_FatalErrorAborts(t *testing.T) {
	input := sse("message", `{"type":"content","delta":"partial"}`) +
		sse(FatalEventName, `{"message":"lost"}`) +
		sse("message", `{"type":"content","delta":"never"}`)

	count := 0
	err := Consume(context.Background(), strings.NewReader(input), func(ev model.Event) error {
		count++
		return nil
	})

	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected *FatalError, got %v", err)
	}
	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
}

func TestConsume_MalformedAborts(t *testing.T) {
	input := sse("message", `not json`) + sse("message", `{"type":"content","delta":"x"}`)

	called := false
	err := Consume(context.Background(), strings.NewReader(input), func(ev model.Event) error {
		called = true
		return nil
	})

	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if called {
		t.Error("handler should not run after a malformed frame")
	}
}

func TestConsume_SkipsEmptyFrames(t *testing.T) {
	input := "event: ping\n\n" + sse("message", `{"type":"content","delta":"x"}`)

	count := 0
	if err := Consume(context.Background(), strings.NewReader(input), func(model.Event) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
}

func TestConsume_HandlerErrorAborts(t *testing.T) {
	stop := errors.New("stop")
	input := sse("message", `{"type":"content","delta":"x"}`) + sse("message", `{"type":"content","delta":"y"}`)

	count := 0
	err := Consume(context.Background(), strings.NewReader(input), func(model.Event) error {
		count++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected handler error, got %v", err)
	}
	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
}

func TestConsume_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	input := sse("message", `{"type":"content","delta":"x"}`) + sse("message", `{"type":"content","delta":"y"}`)

	count := 0
	err := Consume(ctx, strings.NewReader(input), func(model.Event) error {
		count++
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
}

func sse(name, data string) string {
	var b strings.Builder
	if name != "" {
		b.WriteString("event: " + name + "\n")
	}
	b.WriteString("data: " + data + "\n\n")
	return b.String()
}
