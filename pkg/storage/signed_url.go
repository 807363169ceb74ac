package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// AttachmentSigner creates and validates signed attachment download tokens.
// Attachments live in the external object store; the API only hands out
// short-lived proofs that a given message references a given object path.
type AttachmentSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewAttachmentSigner constructs a signer with the provided secret and TTL.
func NewAttachmentSigner(secret string, ttl time.Duration) *AttachmentSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &AttachmentSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Sign returns a token binding the message to its attachment object path.
func (s *AttachmentSigner) Sign(messageID, objectPath string) (string, time.Time, error) {
	if messageID == "" || objectPath == "" {
		return "", time.Time{}, fmt.Errorf("messageID and objectPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(objectPath))
	payload := fmt.Sprintf("%s|%d|%s", messageID, expiresAt.Unix(), encodedPath)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	token := strings.Join([]string{messageID, fmt.Sprintf("%d", expiresAt.Unix()), encodedPath, signature}, ".")
	return token, expiresAt, nil
}

// Verify validates a token and returns the embedded metadata.
func (s *AttachmentSigner) Verify(token string) (messageID, objectPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, fmt.Errorf("invalid token format")
	}
	messageID = parts[0]
	ts := parts[1]
	encodedPath := parts[2]
	signature := parts[3]

	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode path: %w", err)
	}

	expUnix, err := parseUnix(ts)
	if err != nil {
		return "", "", time.Time{}, err
	}
	expiresAt = time.Unix(expUnix, 0)

	payload := fmt.Sprintf("%s|%s|%s", messageID, ts, encodedPath)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	if time.Now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("token expired")
	}
	return messageID, string(rawPath), expiresAt, nil
}

func parseUnix(raw string) (int64, error) {
	var ts int64
	_, err := fmt.Sscanf(raw, "%d", &ts)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp")
	}
	return ts, nil
}
