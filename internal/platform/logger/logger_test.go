package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsHashesCustomerKeys(t *testing.T) {
	out := sanitizeKVs([]interface{}{"eshop_customer_id", "12345", "model", "churn", "auth_token", "abc"})
	if len(out) != 6 {
		t.Fatalf("len: want=6 got=%d", len(out))
	}
	hashed, ok := out[1].(string)
	if !ok || !strings.HasPrefix(hashed, "hash:") {
		t.Fatalf("eshop_customer_id: want hash prefix got=%v", out[1])
	}
	if hashed == "hash:" || strings.Contains(hashed, "12345") {
		t.Fatalf("eshop_customer_id leaked: %q", hashed)
	}
	if out[3] != "churn" {
		t.Fatalf("model: want=%q got=%v", "churn", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("auth_token: want=%q got=%v", "[REDACTED]", out[5])
	}
}

func TestSanitizeKVsStableHash(t *testing.T) {
	a := sanitizeKVs([]interface{}{"guest_id", "g-1"})
	b := sanitizeKVs([]interface{}{"guest_id", "g-1"})
	if a[1] != b[1] {
		t.Fatalf("hash not stable: %v vs %v", a[1], b[1])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"model", "churn", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("odd kv: got=%v", out)
	}
}
