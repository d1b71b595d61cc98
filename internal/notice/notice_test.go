package notice

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{W: &buf}
	w.Notify(Notice{Kind: Failure, Message: "Failed to delete ticket", Err: errors.New("HTTP 500")})
	w.Notify(Notice{Kind: Info, Message: "No trace available"})

	want := "error: Failed to delete ticket: HTTP 500\nNo trace available\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Notify(Notice{Kind: Info, Message: "a"})
	r.Notify(Notice{Kind: Failure, Message: "b"})
	if len(r.Notices()) != 2 {
		t.Fatalf("got %d notices", len(r.Notices()))
	}
	if r.Failures() != 1 {
		t.Errorf("Failures() = %d", r.Failures())
	}
}

func TestKindString(t *testing.T) {
	if Failure.String() != "failure" || Info.String() != "info" {
		t.Errorf("got %q %q", Failure, Info)
	}
}
