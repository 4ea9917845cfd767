package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/service"
)

type CertificateController struct {
	certificateService service.CertificateService
	systemActor        string
}

func NewCertificateController(certificateService service.CertificateService, systemActor string) *CertificateController {
	return &CertificateController{
		certificateService: certificateService,
		systemActor:        systemActor,
	}
}

type IssueCertificateRequest struct {
	EmployeeID string     `json:"employee_id" binding:"required,uuid"`
	ValidUntil *time.Time `json:"valid_until"`
}

type RevokeCertificateRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// List
// GET /api/certificates?establishmentId=&employeeId=&status=&search=
func (ctrl *CertificateController) List(c *gin.Context) {
	certificates, err := ctrl.certificateService.List(service.CertificateListFilter{
		EstablishmentID: c.Query("establishmentId"),
		EmployeeID:      c.Query("employeeId"),
		Status:          model.CertificateStatus(c.Query("status")),
		Search:          c.Query("search"),
	})
	if err != nil {
		respondError(c, err, "load certificates")
		return
	}
	c.JSON(http.StatusOK, certificates)
}

// Issue
// POST /api/certificates
func (ctrl *CertificateController) Issue(c *gin.Context) {
	var req IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	certificate, err := ctrl.certificateService.Issue(adminActor(c, ctrl.systemActor), req.EmployeeID, req.ValidUntil)
	if err != nil {
		respondError(c, err, "issue certificate")
		return
	}
	c.JSON(http.StatusCreated, certificate)
}

// Get
// GET /api/certificates/:id
func (ctrl *CertificateController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	certificate, err := ctrl.certificateService.Get(id)
	if err != nil {
		respondError(c, err, "load certificate")
		return
	}
	c.JSON(http.StatusOK, certificate)
}

// PDF streams the rendered certificate
// GET /api/certificates/:id/pdf
func (ctrl *CertificateController) PDF(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	body, filename, err := ctrl.certificateService.RenderPDF(id)
	if err != nil {
		respondError(c, err, "render certificate")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", body)
}

// Revoke
// POST /api/certificates/:id/revoke
func (ctrl *CertificateController) Revoke(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req RevokeCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	certificate, err := ctrl.certificateService.Revoke(adminActor(c, ctrl.systemActor), id, req.Reason)
	if err != nil {
		respondError(c, err, "revoke certificate")
		return
	}
	c.JSON(http.StatusOK, certificate)
}

// History
// GET /api/certificates/:id/history
func (ctrl *CertificateController) History(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	history, err := ctrl.certificateService.History(id)
	if err != nil {
		respondError(c, err, "load certificate history")
		return
	}
	c.JSON(http.StatusOK, history)
}
