package scheduler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/copysignal/internal/scheduler"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthRouter(t *testing.T) {
	tests := []struct {
		name  string
		store scheduler.Pinger
		path  string
		want  int
	}{
		{"healthz always ok", pinger{err: errors.New("down")}, "/healthz", http.StatusOK},
		{"readyz ok", pinger{}, "/readyz", http.StatusOK},
		{"readyz store down", pinger{err: errors.New("down")}, "/readyz", http.StatusServiceUnavailable},
		{"readyz no store", nil, "/readyz", http.StatusServiceUnavailable},
		{"unknown path", pinger{}, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := scheduler.NewHealthRouter(tt.store)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
