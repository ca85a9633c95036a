package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON_ClampsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 42, map[string]string{"ok": "yes"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestJSONErrorSimple_Shape(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONErrorSimple(rec, http.StatusBadRequest, "Please provide a valid email address")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"error": "Please provide a valid email address"}, body)
}

func TestJSONMessage_Shape(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONMessage(rec, http.StatusOK, "Email sent successfully")

	assert.JSONEq(t, `{"message":"Email sent successfully"}`, rec.Body.String())
}

func TestBindJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		strict  bool
		wantErr string
	}{
		{"valid", `{"name":"Ada"}`, true, ""},
		{"empty", ``, true, "request body is empty"},
		{"truncated", `{"name":`, true, "malformed JSON"},
		{"syntax", `{"name" "Ada"}`, true, "malformed JSON at position"},
		{"type mismatch", `{"name":42}`, true, `invalid value for field "name"`},
		{"unknown strict", `{"name":"Ada","x":1}`, true, `unknown field "x"`},
		{"unknown lenient", `{"name":"Ada","x":1}`, false, ""},
		{"multiple values", `{"name":"a"}{"name":"b"}`, false, "multiple JSON values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			var err error
			if tt.strict {
				err = BindJSON(req, &p)
			} else {
				err = BindJSONAllowUnknown(req, &p)
			}
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Ada", p.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBindJSON_TooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 100)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var p struct {
		Name string `json:"name"`
	}
	err := BindJSON(req, &p)
	require.Error(t, err)
	assert.Equal(t, "request body too large", err.Error())
}
