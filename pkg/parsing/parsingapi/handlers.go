// Package parsingapi exposes the parser, parse jobs and the parse cache
// over HTTP.
package parsingapi

import (
	"context"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/parsing"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsejob"
	"github.com/gofiber/fiber/v2"
)

var ErrRegistry = errx.NewRegistry("API")

var (
	ErrInvalidBody  = ErrRegistry.Register("INVALID_BODY", errx.TypeValidation, fiber.StatusBadRequest, "Request body must be JSON with a path")
	ErrJobsDisabled = ErrRegistry.Register("JOBS_DISABLED", errx.TypeBusiness, fiber.StatusServiceUnavailable, "Async parse jobs are not enabled")
	ErrNoCache      = ErrRegistry.Register("CACHE_DISABLED", errx.TypeBusiness, fiber.StatusServiceUnavailable, "Parse cache is not enabled")
)

type Parser interface {
	Parse(ctx context.Context, req parsing.Request) (*parsing.Result, error)
}

type Jobs interface {
	Submit(ctx context.Context, req parsing.Request) (string, error)
	Get(ctx context.Context, id string) (*parsejob.Status, error)
}

type Cache interface {
	Stats(ctx context.Context) (parsecache.Stats, error)
	Progress(ctx context.Context, fingerprint string) (parsecache.Progress, error)
	Clear(ctx context.Context, fingerprint string) error
	Cleanup(ctx context.Context) (int, error)
}

// Handlers serves /parse and /cache. Jobs and Cache may be nil when the
// feature is switched off; their routes then answer 503.
type Handlers struct {
	parser Parser
	jobs   Jobs
	cache  Cache
}

func NewHandlers(parser Parser, jobs Jobs, cache Cache) *Handlers {
	return &Handlers{parser: parser, jobs: jobs, cache: cache}
}

// RegisterRoutes mounts the routes on router. Cache mutations go through
// admin, which may be nil.
func (h *Handlers) RegisterRoutes(router fiber.Router, admin fiber.Handler) {
	guard := func(c *fiber.Ctx) error { return c.Next() }
	if admin != nil {
		guard = admin
	}

	router.Post("/parse", h.Parse)
	router.Post("/parse/jobs", h.SubmitJob)
	router.Get("/parse/jobs/:id", h.GetJob)

	router.Get("/cache/stats", h.CacheStats)
	router.Post("/cache/cleanup", guard, h.CacheCleanup)
	router.Get("/cache/:fingerprint", h.CacheProgress)
	router.Delete("/cache/:fingerprint", guard, h.CacheClear)
}

type parseBody struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
}

func (h *Handlers) request(c *fiber.Ctx) (parsing.Request, error) {
	var body parseBody
	if err := c.BodyParser(&body); err != nil {
		return parsing.Request{}, ErrRegistry.NewWithCause(ErrInvalidBody, err)
	}
	if strings.TrimSpace(body.Path) == "" {
		return parsing.Request{}, ErrRegistry.New(ErrInvalidBody).WithDetail("field", "path")
	}
	return parsing.Request{Path: body.Path, Mode: parsing.ParseMode(body.Mode)}, nil
}

func (h *Handlers) Parse(c *fiber.Ctx) error {
	req, err := h.request(c)
	if err != nil {
		return err
	}
	res, err := h.parser.Parse(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handlers) SubmitJob(c *fiber.Ctx) error {
	if h.jobs == nil {
		return ErrRegistry.New(ErrJobsDisabled)
	}
	req, err := h.request(c)
	if err != nil {
		return err
	}
	id, err := h.jobs.Submit(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":     id,
		"status": "pending",
		"links":  fiber.Map{"self": "/api/v1/parse/jobs/" + id},
	})
}

func (h *Handlers) GetJob(c *fiber.Ctx) error {
	if h.jobs == nil {
		return ErrRegistry.New(ErrJobsDisabled)
	}
	st, err := h.jobs.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handlers) CacheStats(c *fiber.Ctx) error {
	if h.cache == nil {
		return ErrRegistry.New(ErrNoCache)
	}
	st, err := h.cache.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *Handlers) CacheProgress(c *fiber.Ctx) error {
	if h.cache == nil {
		return ErrRegistry.New(ErrNoCache)
	}
	p, err := h.cache.Progress(c.UserContext(), c.Params("fingerprint"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"progress": p, "summary": p.String()})
}

func (h *Handlers) CacheClear(c *fiber.Ctx) error {
	if h.cache == nil {
		return ErrRegistry.New(ErrNoCache)
	}
	if err := h.cache.Clear(c.UserContext(), c.Params("fingerprint")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) CacheCleanup(c *fiber.Ctx) error {
	if h.cache == nil {
		return ErrRegistry.New(ErrNoCache)
	}
	removed, err := h.cache.Cleanup(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"removed": removed})
}
