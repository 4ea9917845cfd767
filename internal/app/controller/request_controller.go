package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/service"
)

type RequestController struct {
	requestService service.RequestService
	systemActor    string
}

func NewRequestController(requestService service.RequestService, systemActor string) *RequestController {
	return &RequestController{
		requestService: requestService,
		systemActor:    systemActor,
	}
}

type CreateRequestRequest struct {
	FullName          string  `json:"full_name" binding:"required"`
	Email             *string `json:"email" binding:"omitempty,email"`
	Phone             *string `json:"phone"`
	City              *string `json:"city"`
	EstablishmentName *string `json:"establishment_name"`
	Message           *string `json:"message" binding:"omitempty,max=4000"`
}

type UpdateRequestStatusRequest struct {
	Status model.RequestStatus `json:"status" binding:"required"`
}

// Create is public
// POST /api/requests
func (ctrl *RequestController) Create(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := ctrl.requestService.Create(service.CreateRequestInput{
		FullName:          req.FullName,
		Email:             req.Email,
		Phone:             req.Phone,
		City:              req.City,
		EstablishmentName: req.EstablishmentName,
		Message:           req.Message,
	})
	if err != nil {
		respondError(c, err, "create request")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": request.ID, "status": request.Status})
}

// List
// GET /api/requests?status=
func (ctrl *RequestController) List(c *gin.Context) {
	requests, err := ctrl.requestService.List(model.RequestStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, "load requests")
		return
	}
	c.JSON(http.StatusOK, requests)
}

// UpdateStatus
// PATCH /api/requests/:id
func (ctrl *RequestController) UpdateStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := ctrl.requestService.UpdateStatus(adminActor(c, ctrl.systemActor), id, req.Status)
	if err != nil {
		respondError(c, err, "update request")
		return
	}
	c.JSON(http.StatusOK, request)
}
