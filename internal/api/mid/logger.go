package mid

import (
	"context"
	"net/http"
	"time"

	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/otel"
	"github.com/SaTyAbHr2005/sentrix/pkg/web"
)

// Logger writes one line per request with timing and trace correlation.
func Logger(log *logger.Logger) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			start := time.Now()

			resp := next(ctx, r)

			log.Info(ctx, "Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"duration", time.Since(start),
				"trace_id", otel.GetTraceID(ctx),
			)
			return resp
		}

		return h
	}

	return m
}
