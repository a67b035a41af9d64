package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Param returns the named path parameter from the request.
func Param(r *http.Request, name string) string {
	return r.PathValue(name)
}

// QueryInt returns an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// Decode unmarshals the request body into v. Validation is the caller's
// responsibility; handlers typically follow Decode with errs.Check.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
