package notify

import "testing"

func TestQueueDrainsInOrder(t *testing.T) {
	var q Queue
	q.Success("saved")
	q.Error("failed")
	q.Success("")

	if q.Len() != 2 {
		t.Fatalf("expected empty messages to be dropped, got %d", q.Len())
	}
	toasts := q.Drain()
	if len(toasts) != 2 || toasts[0].Kind != KindSuccess || toasts[1].Message != "failed" {
		t.Fatalf("unexpected toasts %+v", toasts)
	}
	if again := q.Drain(); len(again) != 0 {
		t.Fatalf("expected queue to be empty after drain, got %+v", again)
	}
}
