package bus

import (
	"context"
	"testing"
)

func TestPublishConsume(t *testing.T) {
	b := NewEventBus()
	defer b.Close()

	want := Event{ChatID: 42, Text: "/start"}
	if err := b.Publish(context.Background(), want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, ok := b.Consume(context.Background())
	if !ok {
		t.Fatal("consume: closed")
	}
	if got.ChatID != want.ChatID || got.Text != want.Text {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := NewEventBus()
	b.Close()

	if err := b.Publish(context.Background(), Event{}); err != ErrBusClosed {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
	if _, ok := b.Consume(context.Background()); ok {
		t.Error("consume after close must report not ok")
	}
}

func TestIsCallback(t *testing.T) {
	if (Event{Text: "hi"}).IsCallback() {
		t.Error("message event is not a callback")
	}
	if !(Event{CallbackID: "1", CallbackData: "menu:open:1"}).IsCallback() {
		t.Error("callback event not detected")
	}
}
