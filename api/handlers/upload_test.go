package handlers_test

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RoshiKK/emergency-response-api/api/handlers"
	"github.com/RoshiKK/emergency-response-api/config"
)

func TestUpload_SignatureHandlerSignsTimestampAndPreset(t *testing.T) {
	conf := config.Config{
		CloudinaryAPIKey:    "key-123",
		CloudinaryAPISecret: "secret-456",
		CloudinaryPreset:    "incident-photos",
	}
	u := handlers.Upload{Config: conf}

	req := authedRequest(t, "POST", "/api/upload/signature", "", adminIdentity(), nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(u.SignatureHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data["timestamp"])
	assert.Equal(t, "key-123", resp.Data["apiKey"])

	// the signature must verify against the returned timestamp
	h := hmac.New(sha1.New, []byte(conf.CloudinaryAPISecret))
	h.Write([]byte("timestamp=" + resp.Data["timestamp"] + "&upload_preset=" + conf.CloudinaryPreset))
	assert.Equal(t, hex.EncodeToString(h.Sum(nil)), resp.Data["signature"])
}
