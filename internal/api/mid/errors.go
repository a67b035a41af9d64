package mid

import (
	"context"
	"net/http"

	"github.com/SaTyAbHr2005/sentrix/internal/api/errs"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
	"github.com/SaTyAbHr2005/sentrix/pkg/web"
)

// Errors converts error responses into coded API errors and logs them.
// Handlers return *errs.Error (or any error Encoder) directly; anything else
// passes through untouched.
func Errors(log *logger.Logger) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			resp := next(ctx, r)

			err, ok := resp.(error)
			if !ok {
				return resp
			}

			apiErr := errs.GetError(err)
			if apiErr.HTTPStatus() >= http.StatusInternalServerError {
				log.Error(ctx, "Request failed",
					"method", r.Method, "path", r.URL.Path, "error", err)
			} else {
				log.Info(ctx, "Request rejected",
					"method", r.Method, "path", r.URL.Path, "error", err)
			}
			return apiErr
		}

		return h
	}

	return m
}
