package memory

import (
	"context"
	"encoding/json"
	"testing"
)

func TestPublisherRecordsEncodedEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "insights.completed", map[string]any{
		"insights_id": "run-1",
		"root_url":    "https://shop.example.com",
	})
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "insights.completed", map[string]any{"insights_id": "run-2"})
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	events := pub.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	var decoded map[string]any
	if err := json.Unmarshal(events[0].Data, &decoded); err != nil {
		t.Fatalf("event data is not valid JSON: %v", err)
	}
	if decoded["insights_id"] != "run-1" || decoded["root_url"] != "https://shop.example.com" {
		t.Fatalf("event payload not preserved: %v", decoded)
	}

	events[0].Topic = "modified"
	if pub.Events()[0].Topic == "modified" {
		t.Fatal("expected Events() to return a copy")
	}
}

func TestPublisherRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	pub := New()
	if _, err := pub.Publish(context.Background(), "insights.completed", func() {}); err == nil {
		t.Fatal("expected marshal error for unencodable payload")
	}
	if len(pub.Events()) != 0 {
		t.Fatalf("failed publish must not be recorded, got %d events", len(pub.Events()))
	}
}
