package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

var errTrailingData = errors.New("request body must contain a single JSON value")

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// DecodeJSON 解析请求体，限制最大字节数，且只接受单个 JSON 值。
func DecodeJSON(r *http.Request, maxBytes int64, out interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
