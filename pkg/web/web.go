// Package web is a minimal web framework: handlers take a context and return
// an Encoder, middleware wraps handlers as plain functions, and the app binds
// everything onto the standard library mux.
package web

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Logger is the logging function the app uses for framework-level messages.
type Logger func(ctx context.Context, msg string, args ...any)

// Encoder defines behavior for turning a handler result into bytes plus a
// content type.
type Encoder interface {
	Encode() ([]byte, string, error)
}

// HandlerFunc processes one request and returns the value to respond with.
// Returning nil produces 204 No Content.
type HandlerFunc func(ctx context.Context, r *http.Request) Encoder

// MidFunc wraps a handler with cross-cutting behavior.
type MidFunc func(HandlerFunc) HandlerFunc

// App is the entry point for the web API. It wraps a mux and applies the
// configured middleware chain around every registered handler.
type App struct {
	log    Logger
	tracer trace.Tracer
	mux    *http.ServeMux
	mw     []MidFunc
	origins []string
}

// NewApp creates an App with the given middleware applied to every handler,
// outermost first.
func NewApp(log Logger, tracer trace.Tracer, mw ...MidFunc) *App {
	return &App{
		log:    log,
		tracer: tracer,
		mux:    http.NewServeMux(),
		mw:     mw,
	}
}

// EnableCORS allows cross-origin requests from the given origins.
func (a *App) EnableCORS(origins []string) {
	a.origins = origins
}

// HandlerFunc binds a handler to method and path under the given version
// prefix. Extra middleware runs inside the app-level chain.
func (a *App) HandlerFunc(method string, version string, path string, handlerFunc HandlerFunc, mw ...MidFunc) {
	handlerFunc = wrapMiddleware(mw, handlerFunc)
	handlerFunc = wrapMiddleware(a.mw, handlerFunc)

	if version != "" {
		path = "/" + version + path
	}

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx := setWriter(r.Context(), w)
		resp := handlerFunc(ctx, r)
		if err := Respond(ctx, w, resp); err != nil {
			a.log(ctx, "web: respond failed", "error", err)
		}
	}

	a.mux.HandleFunc(method+" "+path, h)
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(a.origins) > 0 {
		origin := r.Header.Get("Origin")
		for _, allowed := range a.origins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				break
			}
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	a.mux.ServeHTTP(w, r)
}

func wrapMiddleware(mw []MidFunc, handler HandlerFunc) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] != nil {
			handler = mw[i](handler)
		}
	}
	return handler
}
