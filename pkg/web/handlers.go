package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/persistence"
	"github.com/voicetree/voicetree/pkg/registry"
	"github.com/voicetree/voicetree/pkg/services"
)

type APIHandlers struct {
	flowService      *services.Flow
	versionService   *services.Version
	promotionService *services.Promotion
	validator        *validator.Validate
	registry         *registry.Registry
	persistence      persistence.Persistence
}

func NewAPIHandlers(
	flowService *services.Flow,
	versionService *services.Version,
	promotionService *services.Promotion,
	validator *validator.Validate,
	registry *registry.Registry,
	persistence persistence.Persistence,
) *APIHandlers {
	return &APIHandlers{
		flowService:      flowService,
		versionService:   versionService,
		promotionService: promotionService,
		validator:        validator,
		registry:         registry,
		persistence:      persistence,
	}
}

// tenantID extracts the tenant from the request header. Every data route
// requires it; an empty header never reaches the services.
func tenantID(c fiber.Ctx) string {
	return c.Get(TenantHeader)
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	opts := persistence.ListFlowsOptions{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}

		opts.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return badRequest(c, "Invalid offset parameter")
		}

		opts.Offset = offset
	}

	result, err := h.flowService.List(c.Context(), tenant, opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ListFlowsResponse{Flows: result.Flows, Total: result.Total})
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow := &models.Flow{
		TenantID:    tenant,
		Name:        req.Name,
		Description: req.Description,
		IsTemplate:  req.IsTemplate,
	}

	created, err := h.flowService.Create(c.Context(), flow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.Get(c.Context(), tenant, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.flowService.Get(c.Context(), tenant, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.IsTemplate != nil {
		existing.IsTemplate = *req.IsTemplate
	}

	updated, err := h.flowService.Update(c.Context(), existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	err := h.flowService.Delete(c.Context(), tenant, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetVersions(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	flowID := c.Params("id")
	if flowID == "" {
		return badRequest(c, "Flow ID is required")
	}

	versions, err := h.versionService.ListByFlow(c.Context(), tenant, flowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"versions": versions})
}

func (h *APIHandlers) CreateDraft(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	flowID := c.Params("id")
	if flowID == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req CreateDraftRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	draft, err := h.versionService.CreateDraft(c.Context(), tenant, flowID, req.SourceVersionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(draft)
}

func (h *APIHandlers) GetLiveVersion(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	flowID := c.Params("id")
	if flowID == "" {
		return badRequest(c, "Flow ID is required")
	}

	live, err := h.versionService.GetLive(c.Context(), tenant, flowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(live)
}

func (h *APIHandlers) GetVersion(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Version ID is required")
	}

	version, err := h.versionService.Get(c.Context(), tenant, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(version)
}

func (h *APIHandlers) UpdateGraph(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Version ID is required")
	}

	var graph models.FlowGraph
	if err := c.Bind().JSON(&graph); err != nil {
		return badRequest(c, "Invalid flow document: "+err.Error())
	}

	version, err := h.versionService.UpdateDraftGraph(c.Context(), tenant, id, &graph)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(version)
}

func (h *APIHandlers) PromoteVersion(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Version ID is required")
	}

	var req PromoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.promotionService.Promote(c.Context(), tenant, id, req.Target, req.PromotedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	response := fiber.Map{"version": record.Version}
	if record.Demoted != nil {
		response["demoted"] = record.Demoted
	}

	return c.JSON(response)
}

func (h *APIHandlers) ArchiveVersion(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Version ID is required")
	}

	var req ArchiveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	version, err := h.promotionService.Archive(c.Context(), tenant, id, req.ArchivedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(version)
}

// ValidateGraph runs the validator against a posted document without storing
// anything. The editor calls this on every save.
func (h *APIHandlers) ValidateGraph(c fiber.Ctx) error {
	var graph models.FlowGraph
	if err := c.Bind().JSON(&graph); err != nil {
		return badRequest(c, "Invalid flow document: "+err.Error())
	}

	result := h.versionService.Validate(&graph)

	return c.JSON(result)
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"node_types": h.registry.All()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	repositoryCheck := "Persistence is healthy"
	repOk := true

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		repositoryCheck = "Persistence is unhealthy: " + err.Error()
		repOk = false
	}

	status := "unhealthy"
	message := "Voicetree API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Voicetree API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
