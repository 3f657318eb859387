package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const apiKeyPrefix = "dqa_"

// Principal is the caller behind an API key.
type Principal struct {
	UserID string
	Admin  bool
}

// AuthService validates bearer API keys configured as token:user pairs.
// Only SHA-256 hashes of the tokens are kept in memory.
type AuthService struct {
	keys map[string]string
	// admins holds user IDs allowed to manage documents
	admins map[string]struct{}
}

func NewAuthService(tokens map[string]string, adminUsers []string) *AuthService {
	keys := make(map[string]string, len(tokens))
	for token, userID := range tokens {
		token = strings.TrimSpace(token)
		if token == "" || userID == "" {
			continue
		}
		keys[hashToken(token)] = userID
	}
	admins := make(map[string]struct{}, len(adminUsers))
	for _, u := range adminUsers {
		admins[strings.TrimSpace(u)] = struct{}{}
	}
	return &AuthService{keys: keys, admins: admins}
}

// ValidateAPIKey resolves a bearer token to its principal.
func (s *AuthService) ValidateAPIKey(_ context.Context, token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidAPIKey
	}

	hash := hashToken(token)
	var userID string
	for stored, user := range s.keys {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(hash)) == 1 {
			userID = user
		}
	}
	if userID == "" {
		return nil, domain.ErrInvalidAPIKey
	}

	_, admin := s.admins[userID]
	return &Principal{UserID: userID, Admin: admin}, nil
}

// GenerateAPIToken returns a new random token suitable for DOCQA_API_KEYS.
func GenerateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
