package transport

import (
	"bytes"
	"errors"
	"testing"
)

func TestPipeDeliversInOrder(t *testing.T) {
	a, b := Pipe(4)
	defer a.Close()
	defer b.Close()

	for i := byte(0); i < 3; i++ {
		if err := a.Send([]byte{i}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	for i := byte(0); i < 3; i++ {
		got := <-b.Inbox()
		if !bytes.Equal(got, []byte{i}) {
			t.Errorf("packet %d = %v", i, got)
		}
	}

	if err := b.Send([]byte("back")); err != nil {
		t.Fatal(err)
	}
	if got := <-a.Inbox(); string(got) != "back" {
		t.Errorf("reverse direction got %q", got)
	}
}

func TestPipeCopiesPackets(t *testing.T) {
	a, b := Pipe(1)
	p := []byte{1, 2, 3}
	a.Send(p)
	p[0] = 9
	if got := <-b.Inbox(); got[0] != 1 {
		t.Errorf("packet aliased sender buffer: %v", got)
	}
}

func TestPipeFullAndClosed(t *testing.T) {
	a, b := Pipe(1)
	if err := a.Send([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := a.Send([]byte{2}); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}

	b.Close()
	if err := a.Send([]byte{3}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after peer close, got %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
