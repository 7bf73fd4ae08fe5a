// Package web provides HTTP handlers and REST API endpoints for the
// provider host.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/stratovia/cpi/pkg/response"
	"github.com/stratovia/cpi/pkg/services"
)

type APIHandlers struct {
	providerService   *services.ProviderService
	invocationService *services.InvocationService
	validator         *validator.Validate
}

func NewAPIHandlers(
	providerService *services.ProviderService,
	invocationService *services.InvocationService,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		providerService:   providerService,
		invocationService: invocationService,
		validator:         validator,
	}
}

func (h *APIHandlers) ListProviders(c fiber.Ctx) error {
	details := h.providerService.ListProviders(c.Context())

	return c.JSON(fiber.Map{
		"providers": details,
		"count":     len(details),
	})
}

func (h *APIHandlers) GetProvider(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Provider name is required")
	}

	detail, err := h.providerService.GetProvider(c.Context(), name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(detail)
}

func (h *APIHandlers) ListActions(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Provider name is required")
	}

	definitions, err := h.providerService.ListActions(c.Context(), name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"provider": name,
		"actions":  definitions,
	})
}

func (h *APIHandlers) GetAction(c fiber.Ctx) error {
	name := c.Params("name")
	action := c.Params("action")

	if name == "" || action == "" {
		return badRequest(c, "Provider name and action name are required")
	}

	definition, document, err := h.providerService.ActionSchema(c.Context(), name, action)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"definition": definition,
		"schema":     document,
	})
}

func (h *APIHandlers) ExecuteAction(c fiber.Ctx) error {
	name := c.Params("name")
	action := c.Params("action")

	if name == "" || action == "" {
		return badRequest(c, "Provider name and action name are required")
	}

	// An absent body is a call with no arguments.
	var req ExecuteActionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	// Unknown provider is a routing error. An unknown action is left to the
	// provider protocol, which reports it inside the result envelope.
	if _, err := h.providerService.GetProvider(c.Context(), name); err != nil {
		return handleServiceError(c, err)
	}

	result := h.invocationService.Execute(c.Context(), services.ExecuteRequest{
		Provider:  name,
		Action:    action,
		Args:      req.Args,
		TimeoutMS: req.TimeoutMS,
	})

	return c.JSON(TransformResultResponse(result))
}

func (h *APIHandlers) LintAction(c fiber.Ctx) error {
	name := c.Params("name")
	action := c.Params("action")

	if name == "" || action == "" {
		return badRequest(c, "Provider name and action name are required")
	}

	var req LintActionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	err := h.providerService.LintArgs(c.Context(), name, action, req.Args)
	if err != nil && services.IsNotFoundError(err) {
		return handleServiceError(c, err)
	}

	resp := LintActionResponse{
		Provider: name,
		Action:   action,
		Valid:    err == nil,
	}
	if err != nil {
		resp.Diagnostics = err.Error()
	}

	return c.JSON(resp)
}

func (h *APIHandlers) TestProvider(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Provider name is required")
	}

	result, err := h.providerService.TestProvider(c.Context(), name)
	if err != nil {
		if services.IsNotFoundError(err) {
			return handleServiceError(c, err)
		}

		// A failed install test is a finding, not a transport error.
		return c.JSON(response.Error(err.Error()))
	}

	return c.JSON(response.Success(result))
}

func (h *APIHandlers) ListInvocations(c fiber.Ctx) error {
	req, err := h.parseHistoryRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	records, err := h.invocationService.History(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"invocations": records,
		"count":       len(records),
	})
}

// parseHistoryRequest parses and validates query parameters for listing
// invocations.
func (h *APIHandlers) parseHistoryRequest(c fiber.Ctx) (*services.HistoryRequest, error) {
	req := &services.HistoryRequest{
		Provider: c.Query("provider"),
		Action:   c.Query("action"),
		Status:   c.Query("status"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	return req, nil
}

func (h *APIHandlers) GetInvocation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Invocation ID is required")
	}

	record, err := h.invocationService.GetInvocation(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.providerService.HealthCheck()
	storeCheck, stOk := h.invocationService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "CPI host is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && stOk {
		status = "healthy"
		message = "CPI host is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"store":    storeCheck,
		},
		"providers": h.providerService.HealthSnapshot(),
		"timestamp": time.Now().UTC(),
	})
}
