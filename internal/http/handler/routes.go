package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/http/middleware"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/model"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/service"
)

// addMemberRequest is the body for granting an account a role in a tenant.
type addMemberRequest struct {
	AccountID string     `json:"account_id"`
	Role      model.Role `json:"role"`
}

// RegisterRoutes attaches the health probes and the administrative tenant
// lifecycle surface to the provided Fiber app. Handlers translate service
// errors to the standardized error envelope; business logic stays in the
// service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, tenantSvc service.TenantService, adminToken string) {
	// Health endpoint: checks DB connectivity only.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Plain liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	admin := app.Group("/admin", middleware.AdminAuth(adminToken))

	// Register a tenant: shared rows first, then the schema build.
	admin.Post("/tenants", func(c *fiber.Ctx) error {
		var in service.CreateTenantInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}

		tenant, err := tenantSvc.CreateTenant(c.UserContext(), in)
		if err != nil {
			var provErr *service.ProvisioningError
			switch {
			case errors.Is(err, service.ErrNameRequired), errors.Is(err, service.ErrOwnerRequired):
				return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
			case errors.As(err, &provErr):
				// The shared rows are committed; tell the operator which
				// tenant to repair instead of pretending nothing happened.
				msg := fmt.Sprintf("tenant %s created but schema provisioning failed; run repair", provErr.TenantID)
				return writeError(c, fiber.StatusInternalServerError, "PROVISIONING_FAILED", msg)
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(tenant)
	})

	admin.Get("/tenants/:tenantID", func(c *fiber.Ctx) error {
		tenantID, err := tenantIDParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid tenant id format")
		}
		tenant, err := tenantSvc.GetTenant(c.UserContext(), tenantID)
		if err != nil {
			if errors.Is(err, service.ErrTenantNotFound) {
				return writeError(c, fiber.StatusNotFound, "TENANT_NOT_FOUND", "tenant not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(tenant)
	})

	// Irreversible: schema, rows and objects all go.
	admin.Delete("/tenants/:tenantID", func(c *fiber.Ctx) error {
		tenantID, err := tenantIDParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid tenant id format")
		}
		if err := tenantSvc.DropTenant(c.UserContext(), tenantID); err != nil {
			if errors.Is(err, service.ErrTenantNotFound) {
				return writeError(c, fiber.StatusNotFound, "TENANT_NOT_FOUND", "tenant not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	admin.Post("/tenants/:tenantID/deactivate", func(c *fiber.Ctx) error {
		tenantID, err := tenantIDParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid tenant id format")
		}
		if err := tenantSvc.DeactivateTenant(c.UserContext(), tenantID); err != nil {
			if errors.Is(err, service.ErrTenantNotFound) {
				return writeError(c, fiber.StatusNotFound, "TENANT_NOT_FOUND", "tenant not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Re-run the idempotent schema sequence, then verify completeness.
	admin.Post("/tenants/:tenantID/repair", func(c *fiber.Ctx) error {
		tenantID, err := tenantIDParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid tenant id format")
		}
		if err := tenantSvc.RepairTenant(c.UserContext(), tenantID); err != nil {
			switch {
			case errors.Is(err, service.ErrTenantNotFound):
				return writeError(c, fiber.StatusNotFound, "TENANT_NOT_FOUND", "tenant not found")
			case errors.Is(err, service.ErrSchemaIncomplete):
				return writeError(c, fiber.StatusConflict, "SCHEMA_INCOMPLETE", err.Error())
			default:
				return writeError(c, fiber.StatusInternalServerError, "PROVISIONING_FAILED", "repair failed")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "repaired"})
	})

	admin.Post("/tenants/:tenantID/members", func(c *fiber.Ctx) error {
		tenantID, err := tenantIDParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid tenant id format")
		}
		var in addMemberRequest
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}

		membership, err := tenantSvc.AddUserToTenant(c.UserContext(), in.AccountID, tenantID, in.Role)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrAccountRequired), errors.Is(err, service.ErrInvalidRole):
				return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
			case errors.Is(err, service.ErrTenantNotFound):
				return writeError(c, fiber.StatusNotFound, "TENANT_NOT_FOUND", "tenant not found")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(membership)
	})

	admin.Delete("/tenants/:tenantID/members/:accountID", func(c *fiber.Ctx) error {
		tenantID, err := tenantIDParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid tenant id format")
		}
		if err := tenantSvc.RemoveUserFromTenant(c.UserContext(), c.Params("accountID"), tenantID); err != nil {
			switch {
			case errors.Is(err, service.ErrAccountRequired):
				return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
			case errors.Is(err, service.ErrMembershipNotFound):
				return writeError(c, fiber.StatusNotFound, "MEMBERSHIP_NOT_FOUND", "membership not found")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Authorization probe: denial is a 200 with has_access=false, not an
	// error, so callers can cache the decision uniformly.
	admin.Get("/tenants/:tenantID/access/:accountID", func(c *fiber.Ctx) error {
		decision, err := tenantSvc.ValidateTenantAccess(c.UserContext(), c.Params("accountID"), c.Params("tenantID"))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(decision)
	})

	admin.Get("/accounts/:accountID/tenants", func(c *fiber.Ctx) error {
		tenants, err := tenantSvc.GetUserTenants(c.UserContext(), c.Params("accountID"))
		if err != nil {
			if errors.Is(err, service.ErrAccountRequired) {
				return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"tenants": tenants})
	})
}

// tenantIDParam validates the :tenantID route parameter as a UUID, the only
// id shape the schema name derivation accepts from the API.
func tenantIDParam(c *fiber.Ctx) (string, error) {
	id := c.Params("tenantID")
	if _, err := uuid.Parse(id); err != nil {
		return "", err
	}
	return id, nil
}
