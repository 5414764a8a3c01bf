package httpapi

import (
	"net/http"
	"testing"

	"llmd/internal/engine"
	"llmd/internal/manager"
	"llmd/internal/session"
)

func TestPredict_ModelNotFoundMaps404(t *testing.T) {
	svc := &mockService{inferErr: manager.ErrModelNotFound("m-missing")}
	r := NewMux(svc)
	if w := postPredict(t, r, `{"prompt":"hi"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPredict_EngineUnavailableMaps503(t *testing.T) {
	svc := &mockService{inferErr: engine.ErrUnavailable("llama support not built")}
	r := NewMux(svc)
	if w := postPredict(t, r, `{"prompt":"hi"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestPredict_PromptTooLongMaps400(t *testing.T) {
	svc := &mockService{inferErr: session.ErrPromptTooLong(4096, 2048)}
	r := NewMux(svc)
	if w := postPredict(t, r, `{"prompt":"hi"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
