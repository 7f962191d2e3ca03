package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"inkblog/internal/models"
	"strings"
	"time"
)

// CursorCodec turns a keyset position into an opaque, signed page token.
type CursorCodec struct {
	key []byte
}

type cursorPayload struct {
	T  int64  `json:"t"`
	ID string `json:"id"`
}

func NewCursorCodec(secret string) *CursorCodec {
	return &CursorCodec{key: []byte(secret)}
}

func (c *CursorCodec) sign(body string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(body))
	return mac.Sum(nil)
}

func (c *CursorCodec) Encode(cur models.Cursor) string {
	raw, _ := json.Marshal(cursorPayload{T: cur.UpdatedAt.UnixMicro(), ID: cur.ID})
	body := base64.RawURLEncoding.EncodeToString(raw)
	return body + "." + base64.RawURLEncoding.EncodeToString(c.sign(body))
}

func (c *CursorCodec) Decode(token string) (models.Cursor, error) {
	body, tag, ok := strings.Cut(token, ".")
	if !ok {
		return models.Cursor{}, invalid("cursor", "malformed")
	}
	sig, err := base64.RawURLEncoding.DecodeString(tag)
	if err != nil || !hmac.Equal(sig, c.sign(body)) {
		return models.Cursor{}, invalid("cursor", "signature mismatch")
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return models.Cursor{}, invalid("cursor", "malformed")
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return models.Cursor{}, invalid("cursor", "malformed")
	}
	return models.Cursor{UpdatedAt: time.UnixMicro(p.T).UTC(), ID: p.ID}, nil
}
