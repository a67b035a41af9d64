package tasks

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/SaTyAbHr2005/sentrix/internal/api/errs"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
	"github.com/SaTyAbHr2005/sentrix/pkg/web"
)

// Config contains the dependencies needed by the task handlers.
type Config struct {
	Log         *logger.Logger
	TaskService *Service
}

// Routes binds all the task and stats endpoints.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	app.HandlerFunc(http.MethodPost, version, "/tasks", submit(cfg))
	app.HandlerFunc(http.MethodGet, version, "/tasks", list(cfg))
	app.HandlerFunc(http.MethodGet, version, "/tasks/{id}", get(cfg))
	app.HandlerFunc(http.MethodPost, version, "/tasks/{id}/stop", stop(cfg))
	app.HandlerFunc(http.MethodDelete, version, "/tasks/{id}", remove(cfg))
	app.HandlerFunc(http.MethodDelete, version, "/tasks", removeAll(cfg))
	app.HandlerFunc(http.MethodGet, version, "/tasks/{id}/findings", findings(cfg))
	app.HandlerFunc(http.MethodGet, version, "/tasks/{id}/assets", assets(cfg))
	app.HandlerFunc(http.MethodGet, version, "/tasks/{id}/endpoints", endpoints(cfg))
	app.HandlerFunc(http.MethodGet, version, "/tasks/{id}/logs", logs(cfg))
	app.HandlerFunc(http.MethodGet, version, "/stats", stats(cfg))
	app.HandlerFunc(http.MethodGet, version, "/stats/heatmap", heatmap(cfg))
}

// submitRequest is the payload for starting a scan.
type submitRequest struct {
	SeedURL             string `json:"seed_url" validate:"required,url"`
	EnumerateSubdomains bool   `json:"enumerate_subdomains"`
	AssetCap            int    `json:"asset_cap" validate:"omitempty,min=1,max=10000"`
}

// submit handles the request to start a scan.
func submit(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		var req submitRequest
		if err := web.Decode(r, &req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		if err := errs.Check(req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		task, err := cfg.TaskService.SubmitTask(ctx, req.SeedURL, req.EnumerateSubdomains, req.AssetCap)
		if err != nil {
			return errs.New(errs.Internal, err)
		}

		return submitResponse{toTaskResponse(task)}
	}
}

// get handles the request for a single task's status and stage results.
func get(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		id, err := uuid.Parse(web.Param(r, "id"))
		if err != nil {
			return errs.Newf(errs.InvalidArgument, "invalid task ID: %s", web.Param(r, "id"))
		}

		task, err := cfg.TaskService.GetTask(ctx, id)
		if err != nil {
			return taskError(err)
		}

		return toTaskResponse(task)
	}
}

// list handles the paginated task listing.
func list(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		limit := web.QueryInt(r, "limit", 50)
		offset := web.QueryInt(r, "offset", 0)
		if limit < 1 || limit > 500 {
			return errs.Newf(errs.InvalidArgument, "limit must be between 1 and 500")
		}
		if offset < 0 {
			return errs.Newf(errs.InvalidArgument, "offset must not be negative")
		}

		tasks, err := cfg.TaskService.ListTasks(ctx, limit, offset)
		if err != nil {
			return errs.New(errs.Internal, err)
		}

		resp := taskListResponse{Tasks: make([]taskResponse, 0, len(tasks)), Limit: limit, Offset: offset}
		for _, task := range tasks {
			resp.Tasks = append(resp.Tasks, toTaskResponse(task))
		}
		return resp
	}
}

// stop handles the request to cancel a running task.
func stop(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		id, err := uuid.Parse(web.Param(r, "id"))
		if err != nil {
			return errs.Newf(errs.InvalidArgument, "invalid task ID: %s", web.Param(r, "id"))
		}

		task, err := cfg.TaskService.StopTask(ctx, id)
		if err != nil {
			if errors.Is(err, ErrTaskFinished) {
				return errs.New(errs.FailedPrecondition, err)
			}
			return taskError(err)
		}

		return toTaskResponse(task)
	}
}

// remove handles the deletion of a single task and its dependent records.
func remove(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		id, err := uuid.Parse(web.Param(r, "id"))
		if err != nil {
			return errs.Newf(errs.InvalidArgument, "invalid task ID: %s", web.Param(r, "id"))
		}

		if err := cfg.TaskService.DeleteTask(ctx, id); err != nil {
			return taskError(err)
		}

		return nil
	}
}

// removeAll handles the deletion of every task.
func removeAll(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		deleted, err := cfg.TaskService.DeleteAllTasks(ctx)
		if err != nil {
			return errs.New(errs.Internal, err)
		}

		return deleteAllResponse{Deleted: deleted}
	}
}

// findings handles the listing of a task's findings and enrichments.
func findings(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		id, err := uuid.Parse(web.Param(r, "id"))
		if err != nil {
			return errs.Newf(errs.InvalidArgument, "invalid task ID: %s", web.Param(r, "id"))
		}

		items, err := cfg.TaskService.ListFindings(ctx, id)
		if err != nil {
			return taskError(err)
		}

		resp := findingListResponse{Findings: make([]findingResponse, 0, len(items))}
		for _, f := range items {
			resp.Findings = append(resp.Findings, toFindingResponse(f))
		}
		return resp
	}
}

// assets handles the listing of a task's discovered assets.
func assets(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		id, err := uuid.Parse(web.Param(r, "id"))
		if err != nil {
			return errs.Newf(errs.InvalidArgument, "invalid task ID: %s", web.Param(r, "id"))
		}

		items, err := cfg.TaskService.ListAssets(ctx, id)
		if err != nil {
			return taskError(err)
		}

		resp := assetListResponse{Assets: make([]assetResponse, 0, len(items))}
		for _, a := range items {
			resp.Assets = append(resp.Assets, toAssetResponse(a))
		}
		return resp
	}
}

// endpoints handles the listing of a task's extracted endpoints.
func endpoints(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		id, err := uuid.Parse(web.Param(r, "id"))
		if err != nil {
			return errs.Newf(errs.InvalidArgument, "invalid task ID: %s", web.Param(r, "id"))
		}

		items, err := cfg.TaskService.ListEndpoints(ctx, id)
		if err != nil {
			return taskError(err)
		}

		resp := endpointListResponse{Endpoints: make([]endpointResponse, 0, len(items))}
		for _, e := range items {
			resp.Endpoints = append(resp.Endpoints, endpointResponse{
				ID:        e.ID().String(),
				TaskID:    e.TaskID().String(),
				AssetID:   e.AssetID().String(),
				Value:     e.Value(),
				Context:   e.Context(),
				CreatedAt: e.CreatedAt(),
			})
		}
		return resp
	}
}

// logs handles the listing of a task's progress log.
func logs(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		id, err := uuid.Parse(web.Param(r, "id"))
		if err != nil {
			return errs.Newf(errs.InvalidArgument, "invalid task ID: %s", web.Param(r, "id"))
		}

		items, err := cfg.TaskService.ListLogs(ctx, id)
		if err != nil {
			return taskError(err)
		}

		resp := logListResponse{Logs: make([]logEntryResponse, 0, len(items))}
		for _, entry := range items {
			resp.Logs = append(resp.Logs, logEntryResponse{
				Stage:     string(entry.Stage()),
				Level:     string(entry.Level()),
				Message:   entry.Message(),
				CreatedAt: entry.CreatedAt(),
			})
		}
		return resp
	}
}

// stats handles the aggregate rollup request.
func stats(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		overview, err := cfg.TaskService.Stats(ctx)
		if err != nil {
			return errs.New(errs.Internal, err)
		}

		return toStatsResponse(overview)
	}
}

// heatmap handles the category by severity heatmap request.
func heatmap(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		cells, err := cfg.TaskService.Heatmap(ctx)
		if err != nil {
			return errs.New(errs.Internal, err)
		}

		return heatmapResponse{Cells: cells}
	}
}

// taskError maps repository errors onto API error codes.
func taskError(err error) *errs.Error {
	if errors.Is(err, scanning.ErrTaskNotFound) {
		return errs.New(errs.NotFound, err)
	}
	return errs.New(errs.Internal, err)
}
