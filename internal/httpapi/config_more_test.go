package httpapi

import (
	"testing"
	"time"
)

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 32<<20 {
		t.Fatalf("expected default 32MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 32<<20 {
		t.Fatalf("expected default 32MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetMaxBodyBytes_PositiveSetsValue(t *testing.T) {
	SetMaxBodyBytes(1234)
	defer SetMaxBodyBytes(0)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetRequestTimeoutSeconds_NormalizesNegativeToZero(t *testing.T) {
	SetRequestTimeoutSeconds(-5)
	if requestTimeout != 0 {
		t.Fatalf("expected 0, got %s", requestTimeout)
	}
	SetRequestTimeoutSeconds(3)
	defer SetRequestTimeoutSeconds(0)
	if requestTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %s", requestTimeout)
	}
}

func TestSetCORSOptions_Defaults(t *testing.T) {
	SetCORSOptions(true, []string{"http://a"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	if len(corsAllowedMethods) == 0 || len(corsAllowedHeaders) == 0 {
		t.Fatalf("expected default methods/headers, got %v %v", corsAllowedMethods, corsAllowedHeaders)
	}
}
