// Package web provides HTTP handlers and REST API endpoints for workflow and metadata management.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService   *services.Workflow
	standardService   *services.Standard
	vocabularyService *services.Vocabulary
	ruleService       *services.Rule
	validator         *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	standardService *services.Standard,
	vocabularyService *services.Vocabulary,
	ruleService *services.Rule,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:   workflowService,
		standardService:   standardService,
		vocabularyService: vocabularyService,
		ruleService:       ruleService,
		validator:         validator,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	w := router.Group("/workflow")
	w.Get("/states", h.ListStates)
	w.Post("/states", h.CreateState)
	w.Get("/states/:id", h.GetState)
	w.Patch("/states/:id", h.UpdateState)
	w.Delete("/states/:id", h.DeleteState)
	w.Get("/states/:id/rules", h.ListRules)
	w.Post("/states/:id/rules", h.CreateRule)
	w.Delete("/rules/:id", h.DeleteRule)
	w.Get("/order", h.OrderStates)
	w.Get("/transitions", h.ListTransitions)
	w.Post("/transitions", h.CreateTransition)
	w.Delete("/transitions/:id", h.DeleteTransition)
	w.Get("/paths", h.TransitionPathExists)
	w.Get("/revert-paths", h.RevertPathExists)
	w.Get("/metrics", h.ListMetrics)
	w.Post("/metrics", h.CreateMetric)

	s := router.Group("/standards")
	s.Get("/", h.ListStandards)
	s.Post("/", h.CreateStandard)
	s.Get("/:name/:version", h.GetStandard)
	s.Post("/:name/:version/validate", h.ValidateRecord)
	s.Get("/:name/:version/attributes", h.ListAttrMaps)
	s.Put("/:name/:version/attributes", h.SaveAttrMap)
	s.Post("/:name/:version/extract", h.ExtractAttributes)

	v := router.Group("/vocabularies")
	v.Get("/:name", h.GetVocabulary)
	v.Put("/:name", h.SaveVocabulary)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Curator API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Curator API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) ListStates(c fiber.Ctx) error {
	includeDeleted := false

	if raw := c.Query("include_deleted"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		includeDeleted = parsed
	}

	states, err := h.workflowService.ListStates(c.Context(), includeDeleted)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(states)
}

func (h *APIHandlers) GetState(c fiber.Ctx) error {
	state, err := h.workflowService.GetState(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(state)
}

func (h *APIHandlers) CreateState(c fiber.Ctx) error {
	var req services.CreateStateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.workflowService.CreateState(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateState(c fiber.Ctx) error {
	var req services.UpdateStateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.workflowService.UpdateState(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteState(c fiber.Ctx) error {
	if err := h.workflowService.DeleteState(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) OrderStates(c fiber.Ctx) error {
	states, err := h.workflowService.OrderStates(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(states)
}

// ListTransitions lists every transition, or those touching the state given in the
// "state" query parameter (ID or name).
func (h *APIHandlers) ListTransitions(c fiber.Ctx) error {
	filter := persistence.TransitionFilter{}

	if ref := c.Query("state"); ref != "" {
		state, err := h.workflowService.GetState(c.Context(), ref)
		if err != nil {
			return handleServiceError(c, err)
		}

		filter.StateID = state.ID
	}

	transitions, err := h.workflowService.ListTransitions(c.Context(), filter)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(transitions)
}

func (h *APIHandlers) CreateTransition(c fiber.Ctx) error {
	var req CreateTransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.CreateTransition(c.Context(), req.From, req.To)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) DeleteTransition(c fiber.Ctx) error {
	if err := h.workflowService.DeleteTransition(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) TransitionPathExists(c fiber.Ctx) error {
	return h.pathExists(c, h.workflowService.TransitionPathExists)
}

func (h *APIHandlers) RevertPathExists(c fiber.Ctx) error {
	return h.pathExists(c, h.workflowService.RevertPathExists)
}

func (h *APIHandlers) pathExists(c fiber.Ctx, query func(ctx context.Context, from, to string) (bool, error)) error {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		return badRequest(c, "Both from and to query parameters are required")
	}

	exists, err := query(c.Context(), from, to)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(PathResponse{From: from, To: to, Exists: exists})
}

func (h *APIHandlers) ListMetrics(c fiber.Ctx) error {
	metrics, err := h.ruleService.ListMetrics(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(metrics)
}

func (h *APIHandlers) CreateMetric(c fiber.Ctx) error {
	var req CreateMetricRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.ruleService.CreateMetric(c.Context(), &models.WorkflowMetric{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
		Evaluator:   req.Evaluator,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) ListRules(c fiber.Ctx) error {
	rules, err := h.ruleService.ListRules(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rules)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.ruleService.CreateRule(c.Context(), &models.WorkflowRule{
		StateID:  c.Params("id"),
		MetricID: req.Metric,
		Body:     req.Body,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	if err := h.ruleService.DeleteRule(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListStandards(c fiber.Ctx) error {
	standards, err := h.standardService.ListStandards(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(standards)
}

func (h *APIHandlers) CreateStandard(c fiber.Ctx) error {
	var req CreateStandardRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.standardService.CreateStandard(c.Context(), &models.MetadataStandard{
		Name:     req.Name,
		Version:  req.Version,
		Schema:   req.Schema,
		Template: req.Template,
		ParentID: req.ParentID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetStandard(c fiber.Ctx) error {
	standard, err := h.standardService.GetStandard(c.Context(), c.Params("name"), c.Params("version"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(standard)
}

// ValidateRecord validates the request body against a standard. An invalid document
// is answered with 422 and its error tree.
func (h *APIHandlers) ValidateRecord(c fiber.Ctx) error {
	var document any
	if err := c.Bind().JSON(&document); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	tree, err := h.standardService.ValidateRecord(c.Context(), c.Params("name"), c.Params("version"), document)
	if err != nil {
		return handleServiceError(c, err)
	}

	if !tree.Empty() {
		return invalidRecord(c, tree)
	}

	return c.JSON(ValidationResponse{Valid: true, Errors: tree})
}

func (h *APIHandlers) ListAttrMaps(c fiber.Ctx) error {
	standard, err := h.standardService.GetStandard(c.Context(), c.Params("name"), c.Params("version"))
	if err != nil {
		return handleServiceError(c, err)
	}

	attrMaps, err := h.standardService.ListAttrMaps(c.Context(), standard.ID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(attrMaps)
}

func (h *APIHandlers) SaveAttrMap(c fiber.Ctx) error {
	var req SaveAttrMapRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	standard, err := h.standardService.GetStandard(c.Context(), c.Params("name"), c.Params("version"))
	if err != nil {
		return handleServiceError(c, err)
	}

	saved, err := h.standardService.SaveAttrMap(c.Context(), &models.MetadataJSONAttrMap{
		StandardID: standard.ID,
		JSONPath:   req.JSONPath,
		RecordAttr: req.RecordAttr,
		IsKey:      req.IsKey,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) ExtractAttributes(c fiber.Ctx) error {
	var document map[string]any
	if err := c.Bind().JSON(&document); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	attributes, err := h.standardService.ExtractAttributes(c.Context(), c.Params("name"), c.Params("version"), document)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(attributes)
}

func (h *APIHandlers) GetVocabulary(c fiber.Ctx) error {
	vocabulary, err := h.vocabularyService.GetVocabulary(c.Context(), c.Params("name"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(vocabulary)
}

func (h *APIHandlers) SaveVocabulary(c fiber.Ctx) error {
	var req SaveVocabularyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	saved, err := h.vocabularyService.SaveVocabulary(c.Context(), c.Params("name"), req.Tags)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}
