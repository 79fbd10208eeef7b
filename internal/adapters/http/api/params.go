package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// pathParam returns the unescaped, trimmed URL parameter key, writing a 400
// when it is blank.
func pathParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	raw := chi.URLParam(r, key)
	v, err := url.PathUnescape(raw)
	if err != nil {
		v = raw
	}
	v = strings.TrimSpace(v)
	if v == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: missing %s", ErrBadRequest, key))
		return "", false
	}
	return v, true
}

// groupFilter reads ?group=; nil selects every group.
func groupFilter(r *http.Request) *string {
	g := strings.TrimSpace(r.URL.Query().Get("group"))
	if g == "" {
		return nil
	}
	return &g
}

// boolQuery reads a boolean query parameter, defaulting to false.
func boolQuery(r *http.Request, key string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrBadRequest, key)
	}
	return b, nil
}
