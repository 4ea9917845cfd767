package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/internal/app/service"
)

// RegistrationController serves the public self-registration page.
// The path token is a bearer credential and is never logged.
type RegistrationController struct {
	registrationService service.RegistrationService
}

func NewRegistrationController(registrationService service.RegistrationService) *RegistrationController {
	return &RegistrationController{registrationService: registrationService}
}

// Lookup
// GET /api/registration/:token
func (ctrl *RegistrationController) Lookup(c *gin.Context) {
	info, err := ctrl.registrationService.Lookup(c.Param("token"))
	if err != nil {
		respondError(c, err, "load registration")
		return
	}
	c.JSON(http.StatusOK, info)
}

// Complete handles both initial registration and password reset
// POST /api/registration/:token
func (ctrl *RegistrationController) Complete(c *gin.Context) {
	var payload service.RegistrationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	outcome, err := ctrl.registrationService.Complete(c.Param("token"), payload)
	if err != nil {
		respondError(c, err, "complete registration")
		return
	}
	c.JSON(http.StatusOK, outcome)
}
