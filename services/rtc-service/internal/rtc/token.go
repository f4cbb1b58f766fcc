// Package rtc builds time-boxed join credentials for video call channels.
// The token binds the app identity, channel and caller uid to an expiry so
// a leaked token cannot be replayed elsewhere or later.
package rtc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

type Credentials struct {
	AppID          string
	AppCertificate string
}

var ErrMissingCredentials = errors.New("rtc credentials not configured")

const tokenVersion = "007"

// BuildToken signs (appID, channel, uid, expiry) with the app certificate.
func BuildToken(creds Credentials, channelName string, uid uint32, expireAt time.Time) (string, error) {
	if creds.AppID == "" || creds.AppCertificate == "" {
		return "", ErrMissingCredentials
	}
	if channelName == "" {
		return "", errors.New("channel name required")
	}

	expireTs := expireAt.Unix()
	message := fmt.Sprintf("%s:%s:%d:%d", creds.AppID, channelName, uid, expireTs)
	mac := hmac.New(sha256.New, []byte(creds.AppCertificate))
	mac.Write([]byte(message))
	sig := mac.Sum(nil)

	raw := fmt.Sprintf("%s:%d:%d:%s", channelName, uid, expireTs, base64.RawURLEncoding.EncodeToString(sig))
	return tokenVersion + creds.AppID + base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

// Verify checks a token produced by BuildToken against the credentials.
func Verify(creds Credentials, token string, now time.Time) (channelName string, uid uint32, err error) {
	prefix := tokenVersion + creds.AppID
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return "", 0, errors.New("malformed token")
	}
	rawBytes, err := base64.RawURLEncoding.DecodeString(token[len(prefix):])
	if err != nil {
		return "", 0, errors.New("malformed token")
	}

	var expireTs int64
	parts := splitN(string(rawBytes), ':', 4)
	if len(parts) != 4 {
		return "", 0, errors.New("malformed token")
	}
	channelName = parts[0]
	if _, err := fmt.Sscanf(parts[1], "%d", &uid); err != nil {
		return "", 0, errors.New("malformed token")
	}
	if _, err := fmt.Sscanf(parts[2], "%d", &expireTs); err != nil {
		return "", 0, errors.New("malformed token")
	}
	sigEncoded := parts[3]

	if now.Unix() > expireTs {
		return "", 0, errors.New("token expired")
	}

	message := fmt.Sprintf("%s:%s:%d:%d", creds.AppID, channelName, uid, expireTs)
	mac := hmac.New(sha256.New, []byte(creds.AppCertificate))
	mac.Write([]byte(message))
	want := mac.Sum(nil)
	got, err := base64.RawURLEncoding.DecodeString(sigEncoded)
	if err != nil || !hmac.Equal(want, got) {
		return "", 0, errors.New("invalid signature")
	}
	return channelName, uid, nil
}

func splitN(s string, sep byte, n int) []string {
	out := make([]string, 0, n)
	start := 0
	for i := 0; i < len(s) && len(out) < n-1; i++ {
		if s[i] == sep {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
