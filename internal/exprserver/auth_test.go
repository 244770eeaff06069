package exprserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_getBearerToken(t *testing.T) {
	testCases := []struct {
		name      string
		header    string
		wantToken string
		wantErr   bool
	}{
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc123", wantErr: true},
		{name: "valid bearer", header: "Bearer abc123", wantToken: "abc123"},
		{name: "case insensitive scheme", header: "bearer abc123", wantToken: "abc123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			tok, err := getBearerToken(req)
			if tc.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.wantToken, tok)
		})
	}
}

func Test_validateToken_rejectsWrongSecret(t *testing.T) {
	assert := assert.New(t)

	secret := []byte("right-secret")
	tok, err := IssueToken(secret, "admin", time.Hour)
	assert.NoError(err)
	hash, err := TokenHash(tok)
	assert.NoError(err)

	err = validateToken(tok, []byte("wrong-secret"), hash)
	assert.Error(err)
}

func Test_validateToken_rejectsUnrecognizedHash(t *testing.T) {
	assert := assert.New(t)

	secret := []byte("the-secret")
	tok, err := IssueToken(secret, "admin", time.Hour)
	assert.NoError(err)

	otherHash, err := TokenHash("a-completely-different-token")
	assert.NoError(err)

	err = validateToken(tok, secret, otherHash)
	assert.Error(err)
}

func Test_validateToken_acceptsMatchingTokenAndHash(t *testing.T) {
	assert := assert.New(t)

	secret := []byte("the-secret")
	tok, err := IssueToken(secret, "admin", time.Hour)
	assert.NoError(err)
	hash, err := TokenHash(tok)
	assert.NoError(err)

	assert.NoError(validateToken(tok, secret, hash))
}

func Test_validateToken_rejectsExpiredToken(t *testing.T) {
	assert := assert.New(t)

	secret := []byte("the-secret")
	tok, err := IssueToken(secret, "admin", -time.Hour)
	assert.NoError(err)
	hash, err := TokenHash(tok)
	assert.NoError(err)

	err = validateToken(tok, secret, hash)
	assert.Error(err)
}
