package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/internal/app/service"
)

// AdminController serves the dashboard counters and the audit trail.
type AdminController struct {
	dashboardService service.DashboardService
	auditService     service.AuditService
}

func NewAdminController(dashboardService service.DashboardService, auditService service.AuditService) *AdminController {
	return &AdminController{
		dashboardService: dashboardService,
		auditService:     auditService,
	}
}

// Summary
// GET /api/metrics
func (ctrl *AdminController) Summary(c *gin.Context) {
	summary, err := ctrl.dashboardService.Summary()
	if err != nil {
		respondError(c, err, "load metrics")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// AuditLogs returns the newest entries; limit defaults to 100 and caps at 500
// GET /api/audit-logs?limit=
func (ctrl *AdminController) AuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := ctrl.auditService.List(limit)
	if err != nil {
		respondError(c, err, "load audit logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}
