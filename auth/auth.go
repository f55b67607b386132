// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidFlowKey = errors.New("invalid flow key")
	ErrMissingToken   = errors.New("missing bearer token")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateFlowKey creates an HMAC-based key for a request-access flow.
// This is deterministic and verifiable, so keys never need to be stored.
func GenerateFlowKey(flowID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte("flow:" + flowID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateFlowKey checks if the provided key is valid for the flow
func ValidateFlowKey(flowID, flowKey, salt string) error {
	if flowKey == "" {
		return ErrInvalidFlowKey
	}
	expected := GenerateFlowKey(flowID, salt)
	if !hmac.Equal([]byte(flowKey), []byte(expected)) {
		return ErrInvalidFlowKey
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
