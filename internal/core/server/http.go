package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/solatis/querybuilder/internal/core/api"
	"github.com/solatis/querybuilder/internal/core/config"
	"github.com/solatis/querybuilder/internal/types"
)

// HTTPServer exposes the compile service over JSON.
//
//	POST   /v1/compile        {"tree": {...}}            -> {"query": "...", ...}
//	GET    /v1/queries                                   -> [saved query, ...]
//	POST   /v1/queries        {"name": "...", "tree": {...}}
//	GET    /v1/queries/:ref   ?recompile=true            -> saved query
//	DELETE /v1/queries/:ref
//	GET    /healthz
type HTTPServer struct {
	app     *fiber.App
	service *api.CompilerService
	config  *config.ServiceConfig
	logger  *slog.Logger
}

// compileRequest is the body of POST /v1/compile and POST /v1/queries.
type compileRequest struct {
	Name string          `json:"name,omitempty"`
	Tree json.RawMessage `json:"tree"`
}

type compileResponse struct {
	Query          string `json:"query"`
	Rules          int    `json:"rules"`
	Groups         int    `json:"groups"`
	MaxDepth       int    `json:"maxDepth"`
	SchemaChecksum string `json:"schemaChecksum"`
}

// errorResponse names the failing node for compile errors.
type errorResponse struct {
	Error    string `json:"error"`
	Node     string `json:"node,omitempty"`
	Field    string `json:"field,omitempty"`
	Operator string `json:"operator,omitempty"`
}

// NewHTTPServer creates the fiber app and registers routes.
func NewHTTPServer(cfg *config.ServiceConfig, service *api.CompilerService, logger *slog.Logger) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPServer{service: service, config: cfg, logger: logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "querybuilder",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.RequestTimeout,
		WriteTimeout:          cfg.RequestTimeout,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())

	s.app.Get("/healthz", s.health)

	v1 := s.app.Group("/v1")
	v1.Post("/compile", s.compile)
	v1.Get("/queries", s.listQueries)
	v1.Post("/queries", s.saveQuery)
	v1.Get("/queries/:ref", s.getQuery)
	v1.Delete("/queries/:ref", s.deleteQuery)

	return s, nil
}

// App returns the underlying fiber app.
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

// Start listens on the configured HTTP address. Blocks until Shutdown.
func (s *HTTPServer) Start() error {
	return s.app.Listen(s.config.HTTPAddr())
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx ends.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *HTTPServer) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.config.RequestTimeout)
}

func (s *HTTPServer) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"schema": s.service.SchemaChecksum(),
	})
}

func (s *HTTPServer) compile(c *fiber.Ctx) error {
	_, tree, err := decodeRequest(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	res, err := s.service.CompileTree(ctx, tree)
	if err != nil {
		return err
	}
	return c.JSON(compileResponse{
		Query:          res.Query,
		Rules:          res.Stats.Rules,
		Groups:         res.Stats.Groups,
		MaxDepth:       res.Stats.MaxDepth,
		SchemaChecksum: res.SchemaChecksum,
	})
}

func (s *HTTPServer) saveQuery(c *fiber.Ctx) error {
	req, tree, err := decodeRequest(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	saved, err := s.service.SaveQuery(ctx, req.Name, tree)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (s *HTTPServer) listQueries(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	saved, err := s.service.ListQueries(ctx)
	if err != nil {
		return err
	}
	return c.JSON(saved)
}

func (s *HTTPServer) getQuery(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	saved, err := s.service.GetQuery(ctx, c.Params("ref"), c.QueryBool("recompile"))
	if err != nil {
		return err
	}
	return c.JSON(saved)
}

func (s *HTTPServer) deleteQuery(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	if err := s.service.DeleteQuery(ctx, c.Params("ref")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(errorResponse{Error: fiberErr.Message})
	}

	resp := errorResponse{Error: err.Error()}
	var compileErr *types.CompileError
	if errors.As(err, &compileErr) {
		resp.Error = compileErr.Err.Error()
		resp.Node = string(compileErr.NodeID)
		resp.Field = compileErr.Field
		resp.Operator = compileErr.Operator
	}

	code := api.HTTPStatus(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err))
	}
	return c.Status(code).JSON(resp)
}

// decodeRequest parses the JSON body and its tree. The raw body is copied by
// json.Unmarshal, so nothing retains fiber's reused buffer.
func decodeRequest(c *fiber.Ctx) (*compileRequest, *types.GroupNode, error) {
	var req compileRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	if len(req.Tree) == 0 {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "missing tree")
	}
	tree, err := api.DecodeTree(req.Tree)
	if err != nil {
		return nil, nil, err
	}
	return &req, tree, nil
}
