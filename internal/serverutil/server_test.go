package serverutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrs "github.com/jdholdren/herald/internal/errors"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (n nameRequest) Validate() error {
	if n.Name == "" {
		return herrs.E("invalid request", http.StatusBadRequest, herrs.Detail{Field: "name", Error: "required"})
	}
	return nil
}

func TestDecodeValid(t *testing.T) {
	got, err := DecodeValid[nameRequest](strings.NewReader(`{"name": "a"}`))
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	_, err = DecodeValid[nameRequest](strings.NewReader(`{"name": ""}`))
	var hErr *herrs.Error
	require.ErrorAs(t, err, &hErr)
	assert.Equal(t, http.StatusBadRequest, hErr.Status)
	assert.Len(t, hErr.Details, 1)

	_, err = DecodeValid[nameRequest](strings.NewReader(`{`))
	require.ErrorAs(t, err, &hErr)
	assert.Equal(t, http.StatusBadRequest, hErr.Status)
}

func TestHandlerFuncE(t *testing.T) {
	r := ErrRouter{Router: mux.NewRouter()}
	r.Use(AccessLogMiddleware)
	r.HandleFuncE("/ok", func(w http.ResponseWriter, r *http.Request) error {
		return WriteJSON(w, http.StatusOK, map[string]string{"hello": "world"})
	})
	r.HandleFuncE("/structured", func(w http.ResponseWriter, r *http.Request) error {
		return herrs.E("not here", http.StatusNotFound)
	})
	r.HandleFuncE("/plain", func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("boom")
	})

	tests := []struct {
		path        string
		wantStatus  int
		wantMessage string
	}{
		{path: "/ok", wantStatus: http.StatusOK},
		{path: "/structured", wantStatus: http.StatusNotFound, wantMessage: "not here"},
		{path: "/plain", wantStatus: http.StatusInternalServerError, wantMessage: "internal server error"},
	}

	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, test.path, nil))

			assert.Equal(t, test.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if test.wantMessage == "" {
				return
			}

			var body herrs.Error
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, test.wantMessage, body.Err.Error())
			assert.Equal(t, test.wantStatus, body.Status)
		})
	}
}
