package models

import (
	"math"
	"testing"
)

func TestParseTarget(t *testing.T) {
	cases := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "ORDERS", want: QueueTarget("ORDERS")},
		{in: " ORDERS ", want: QueueTarget("ORDERS")},
		{in: "EVENTS/billing", want: SubscriptionTarget("EVENTS", "billing")},
		{in: "", wantErr: true},
		{in: "EVENTS/", wantErr: true},
		{in: "/billing", wantErr: true},
		{in: "a/b/c", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseTarget(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseTarget(%q): expected error, got %+v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTarget(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTarget(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestDeadLetterName(t *testing.T) {
	if got := DeadLetterName(QueueTarget("ORDERS"), ""); got != "ORDERS_DLQ" {
		t.Fatalf("queue dlq: got %q", got)
	}
	if got := DeadLetterName(SubscriptionTarget("EVENTS", "billing"), "-dlq"); got != "EVENTS_billing-dlq" {
		t.Fatalf("subscription dlq: got %q", got)
	}
	if got := DeadLetterName(Target{}, ""); got != "" {
		t.Fatalf("zero target dlq: got %q", got)
	}
}

func TestAnchorAfterSaturates(t *testing.T) {
	seq, ok := After(41).Sequence()
	if !ok || seq != 42 {
		t.Fatalf("After(41) = %d,%v", seq, ok)
	}
	seq, ok = After(math.MaxInt64).Sequence()
	if !ok || seq != math.MaxInt64 {
		t.Fatalf("After(max) = %d,%v", seq, ok)
	}
	if !StartAnchor().IsStart() || StartAnchor().String() != "start" {
		t.Fatalf("start anchor misreported")
	}
}
