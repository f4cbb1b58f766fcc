package rtc

import (
	"testing"
	"time"
)

var testCreds = Credentials{
	AppID:          "app-id-0123456789abcdef",
	AppCertificate: "certificate-secret",
}

func TestBuildAndVerifyToken(t *testing.T) {
	expireAt := time.Now().Add(time.Hour)
	token, err := BuildToken(testCreds, "lesson-42", 7, expireAt)
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}

	channel, uid, err := Verify(testCreds, token, time.Now())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if channel != "lesson-42" {
		t.Errorf("channel = %q, want lesson-42", channel)
	}
	if uid != 7 {
		t.Errorf("uid = %d, want 7", uid)
	}
}

func TestBuildTokenMissingCredentials(t *testing.T) {
	_, err := BuildToken(Credentials{}, "lesson-42", 7, time.Now().Add(time.Hour))
	if err != ErrMissingCredentials {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestBuildTokenMissingChannel(t *testing.T) {
	if _, err := BuildToken(testCreds, "", 7, time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected error for empty channel")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	token, err := BuildToken(testCreds, "lesson-42", 7, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}
	if _, _, err := Verify(testCreds, token, time.Now()); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestVerifyWrongCertificate(t *testing.T) {
	token, err := BuildToken(testCreds, "lesson-42", 7, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}
	other := Credentials{AppID: testCreds.AppID, AppCertificate: "other-secret"}
	if _, _, err := Verify(other, token, time.Now()); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestVerifyGarbage(t *testing.T) {
	if _, _, err := Verify(testCreds, "not-a-token", time.Now()); err == nil {
		t.Fatal("expected malformed token to fail")
	}
}
