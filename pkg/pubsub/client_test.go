package pubsub

import (
	"context"
	"testing"
)

func TestTopicResourceName(t *testing.T) {
	tests := []struct {
		project string
		name    string
		want    string
	}{
		{project: "proj", name: "email-tasks", want: "projects/proj/topics/email-tasks"},
		{project: "proj", name: " email-tasks ", want: "projects/proj/topics/email-tasks"},
		{project: "proj", name: "projects/other/topics/x", want: "projects/other/topics/x"},
		{project: "", name: "email-tasks", want: ""},
		{project: "proj", name: "", want: ""},
	}
	for _, tt := range tests {
		if got := TopicResourceName(tt.project, tt.name); got != tt.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tt.project, tt.name, got, tt.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("x") != nil {
		t.Fatal("nil client should not return a publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close should be a no-op, got %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("nil client ping should fail")
	}
}
