package response

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"fleets-server/internal/shared/errors"
)

func TestError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantType    string
		wantMessage string
	}{
		{name: "policy", err: errors.Policy("you already have the max planets you can have"), wantCode: http.StatusUnprocessableEntity, wantType: "policy", wantMessage: "you already have the max planets you can have"},
		{name: "not found", err: errors.NotFoundf("mission %d not found", 4), wantCode: http.StatusNotFound, wantType: "not_found", wantMessage: "mission 4 not found"},
		{name: "invariant hidden", err: errors.Invariantf("fleet %d has no planet", 9), wantCode: http.StatusInternalServerError, wantType: "invariant", wantMessage: "internal server error"},
		{name: "plain error", err: fmt.Errorf("connection reset"), wantCode: http.StatusInternalServerError, wantType: "internal", wantMessage: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/api/missions", nil), logger, tt.err)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if body.Error != tt.wantType || body.Message != tt.wantMessage || body.Code != tt.wantCode {
				t.Errorf("body = %+v, want %s/%q/%d", body, tt.wantType, tt.wantMessage, tt.wantCode)
			}
		})
	}
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, map[string]int{"id": 3})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := rec.Body.String(); got != "{\"id\":3}\n" {
		t.Errorf("body = %q", got)
	}

	rec = httptest.NewRecorder()
	Success(rec, http.StatusNoContent, nil)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("Success(nil) = %d %q, want empty 204", rec.Code, rec.Body.String())
	}
}
