// Package patterns exposes the detection rule administration endpoints:
// listing the active ruleset and importing operator-supplied pattern files.
package patterns

import (
	"context"
	"errors"
	"net/http"

	"github.com/SaTyAbHr2005/sentrix/internal/api/errs"
	"github.com/SaTyAbHr2005/sentrix/internal/app/rules"
	domain "github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
	"github.com/SaTyAbHr2005/sentrix/pkg/web"
)

// maxPatternBody bounds uploaded pattern files.
const maxPatternBody = 1 << 20

// Config contains the dependencies needed by the pattern handlers.
type Config struct {
	Log         *logger.Logger
	RuleService *rules.Service
	Rules       domain.RuleRepository
}

// Routes binds the pattern administration endpoints.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	app.HandlerFunc(http.MethodGet, version, "/patterns", list(cfg))
	app.HandlerFunc(http.MethodPost, version, "/patterns/import", importPatterns(cfg))
}

// list handles the request for the full ruleset, enabled or not.
func list(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		ruleList, err := cfg.Rules.ListRules(ctx)
		if err != nil {
			return errs.New(errs.Internal, err)
		}
		return toPatternListResponse(ruleList)
	}
}

// importPatterns handles a YAML pattern file upload. Imported rules are
// persisted and broadcast to the workers.
func importPatterns(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		body := http.MaxBytesReader(nil, r.Body, maxPatternBody)
		defer body.Close()

		count, err := cfg.RuleService.ImportPatterns(ctx, "api-import", body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return errs.Newf(errs.InvalidArgument, "pattern file exceeds %d bytes", maxPatternBody)
			}
			return errs.New(errs.InvalidArgument, err)
		}

		return importResponse{Imported: count}
	}
}
