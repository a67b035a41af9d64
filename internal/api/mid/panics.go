package mid

import (
	"context"
	"net/http"
	"runtime/debug"

	"github.com/SaTyAbHr2005/sentrix/internal/api/errs"
	"github.com/SaTyAbHr2005/sentrix/pkg/web"
)

// Panics recovers handler panics and converts them into internal errors so
// one bad request cannot take the process down.
func Panics() web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) (resp web.Encoder) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					resp = errs.Newf(errs.Internal, "panic: %v [%s]", rec, trace)
				}
			}()

			return next(ctx, r)
		}

		return h
	}

	return m
}
