package server

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/steelworks/forge/pkg/models"
	"github.com/steelworks/forge/pkg/pipeline"
)

// modelSummary is the list-endpoint view of a model
type modelSummary struct {
	ID              string   `json:"id"`
	Stage           string   `json:"stage"`
	Kind            string   `json:"kind"`
	Materialization string   `json:"materialization"`
	Dependencies    []string `json:"dependencies"`
	Description     string   `json:"description,omitempty"`
}

// runRequest selects what a triggered run executes
type runRequest struct {
	Stages []string `json:"stages"`
	Models []string `json:"models"`
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		AppName:      "forge API",
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}))

	api := app.Group("/api/v1")
	api.Get("/health", s.handleHealth)
	api.Get("/models", s.handleListModels)
	api.Get("/models/:database/:table", s.handleGetModel)
	api.Get("/runs", s.handleListRuns)
	api.Post("/runs", s.handleTriggerRun)

	return app
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleListModels(c fiber.Ctx) error {
	dag := s.models.DAG()

	summaries := make([]modelSummary, 0)
	for _, model := range s.models.SortedModels() {
		config := model.GetConfig()

		summaries = append(summaries, modelSummary{
			ID:              model.GetID(),
			Stage:           string(config.Stage),
			Kind:            string(model.GetKind()),
			Materialization: string(config.Materialization),
			Dependencies:    dag.GetDependencies(model.GetID()),
			Description:     config.Description,
		})
	}

	return c.JSON(fiber.Map{
		"models": summaries,
		"total":  len(summaries),
	})
}

func (s *Server) handleGetModel(c fiber.Ctx) error {
	modelID := c.Params("database") + "." + c.Params("table")

	model, ok := s.models.DAG().GetModel(modelID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "model not found")
	}

	config := model.GetConfig()
	dag := s.models.DAG()

	lastRun, err := s.admin.LastRun(c.Context(), modelID)
	if err != nil {
		return err
	}

	totalRuns, err := s.admin.TotalRuns(c.Context(), modelID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":              model.GetID(),
		"stage":           config.Stage,
		"kind":            model.GetKind(),
		"materialization": config.Materialization,
		"description":     config.Description,
		"dependencies":    dag.GetDependencies(modelID),
		"dependents":      dag.GetDependents(modelID),
		"columns":         config.Columns,
		"last_run":        lastRun,
		"total_runs":      totalRuns,
	})
}

func (s *Server) handleListRuns(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	runs, err := s.admin.RecentRuns(c.Context(), limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"runs":  runs,
		"total": len(runs),
	})
}

// handleTriggerRun starts a pipeline run in the background. Only one run may
// be in flight at a time; a second trigger gets a conflict response.
func (s *Server) handleTriggerRun(c fiber.Ctx) error {
	var req runRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid run request")
		}
	}

	opts := pipeline.RunOptions{Models: req.Models}
	for _, stage := range req.Stages {
		opts.Stages = append(opts.Stages, models.Stage(stage))
	}

	if !s.runMu.TryLock() {
		return fiber.NewError(fiber.StatusConflict, "a run is already in progress")
	}

	go func() {
		defer s.runMu.Unlock()

		if _, err := s.runner.Run(context.Background(), opts); err != nil {
			s.log.WithError(err).Error("Triggered run failed")
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

// errorHandler provides consistent error responses
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	if ok := errors.As(err, &fiberErr); ok {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
