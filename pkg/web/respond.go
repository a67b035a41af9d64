package web

import (
	"context"
	"fmt"
	"net/http"
)

type ctxKey int

const writerKey ctxKey = 1

func setWriter(ctx context.Context, w http.ResponseWriter) context.Context {
	return context.WithValue(ctx, writerKey, w)
}

// GetWriter retrieves the response writer stashed in the request context.
// Middleware uses it to adjust headers before the handler responds.
func GetWriter(ctx context.Context) http.ResponseWriter {
	w, _ := ctx.Value(writerKey).(http.ResponseWriter)
	return w
}

// httpStatus is implemented by response values that carry their own status
// code, such as API errors.
type httpStatus interface {
	HTTPStatus() int
}

// Respond encodes resp onto the response writer. A nil resp produces
// 204 No Content.
func Respond(ctx context.Context, w http.ResponseWriter, resp Encoder) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("web: client disconnected: %w", err)
	}

	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	statusCode := http.StatusOK
	if v, ok := resp.(httpStatus); ok {
		statusCode = v.HTTPStatus()
	}

	data, contentType, err := resp.Encode()
	if err != nil {
		return fmt.Errorf("web: encode response: %w", err)
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("web: write response: %w", err)
	}
	return nil
}
