package xid

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReceiptFormat(t *testing.T) {
	at := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	got := Receipt(at)
	if !regexp.MustCompile(`^RCPT-20250102150405-[0-9A-F]{6}$`).MatchString(got) {
		t.Fatalf("unexpected receipt %q", got)
	}
	if Receipt(at) == got {
		t.Fatalf("expected random suffix to differ between calls")
	}
}

func TestOrderIDIsUUID(t *testing.T) {
	if _, err := uuid.Parse(OrderID()); err != nil {
		t.Fatalf("order id is not a uuid: %v", err)
	}
}

func TestNewKeepsPrefix(t *testing.T) {
	if got := New("audit"); !strings.HasPrefix(got, "audit-") {
		t.Fatalf("unexpected id %q", got)
	}
}
