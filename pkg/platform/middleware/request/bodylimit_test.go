package request

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name     string
		maxBytes int64
		bodyLen  int
		wantErr  bool
	}{
		{name: "under limit", maxBytes: 1024, bodyLen: 100},
		{name: "exact limit", maxBytes: 100, bodyLen: 100},
		{name: "over limit", maxBytes: 100, bodyLen: 200, wantErr: true},
		{name: "empty body", maxBytes: 1024, bodyLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			var read []byte
			handler := BodyLimit(tt.maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				read, readErr = io.ReadAll(r.Body)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", tt.bodyLen)))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantErr {
				assert.Error(t, readErr)
				return
			}
			assert.NoError(t, readErr)
			assert.Len(t, read, tt.bodyLen)
		})
	}
}
