package audit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"netventure.org/internal/auth"
	"netventure.org/internal/obs"
)

func TestLogEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	obs.SetLogger(zap.New(core))
	defer obs.SetLogger(nil)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithPrincipal(ctx, auth.Principal{Subject: "admin:school_default", TenantID: "school_default"})

	if err := LogEvent(ctx, "tenant.challenge.upsert", map[string]any{"challenge_id": "s1c1"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != "audit" {
		t.Fatalf("unexpected type: %v", fields["type"])
	}
	if fields["event"] != "tenant.challenge.upsert" {
		t.Fatalf("unexpected event: %v", fields["event"])
	}
	if fields["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", fields["request_id"])
	}
	if fields["subject"] != "admin:school_default" {
		t.Fatalf("unexpected subject: %v", fields["subject"])
	}
	extra, ok := fields["fields"].(map[string]any)
	if !ok || extra["challenge_id"] != "s1c1" {
		t.Fatalf("fields missing or incorrect: %v", fields["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event")
	}
}
