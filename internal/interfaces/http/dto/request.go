package dto

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// UploadRequest is the body of every file upload endpoint. The file
// content travels base64-encoded, optionally with a data-URI prefix
// the way browsers produce it.
type UploadRequest struct {
	Filename string `json:"filename" binding:"required"`
	Base64   string `json:"base64" binding:"required"`
}

// Decode strips a data-URI prefix if present and decodes the payload.
func (r UploadRequest) Decode() ([]byte, error) {
	raw := r.Base64
	if i := strings.Index(raw, ";base64,"); i >= 0 {
		raw = raw[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return data, nil
}

// InitRequest is the body of the init endpoint. The field name is the
// one the frontend has always sent.
type InitRequest struct {
	Webhook string `json:"bx_link" binding:"required"`
}
