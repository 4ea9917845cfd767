package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/internal/app/service"
)

type EstablishmentController struct {
	establishmentService service.EstablishmentService
	systemActor          string
}

func NewEstablishmentController(establishmentService service.EstablishmentService, systemActor string) *EstablishmentController {
	return &EstablishmentController{
		establishmentService: establishmentService,
		systemActor:          systemActor,
	}
}

type CreateEstablishmentRequest struct {
	Name                string  `json:"name" binding:"required,min=2"`
	City                string  `json:"city"`
	Representative      *string `json:"representative"`
	RepresentativePhone *string `json:"representative_phone"`
	Address             *string `json:"address"`
}

type UpdateEstablishmentRequest struct {
	Name                *string `json:"name" binding:"omitempty,min=2"`
	City                *string `json:"city"`
	Representative      *string `json:"representative"`
	RepresentativePhone *string `json:"representative_phone"`
	Address             *string `json:"address"`
}

// List
// GET /api/establishments?includeArchived=true
func (ctrl *EstablishmentController) List(c *gin.Context) {
	establishments, err := ctrl.establishmentService.List(c.Query("includeArchived") == "true")
	if err != nil {
		respondError(c, err, "load establishments")
		return
	}
	c.JSON(http.StatusOK, establishments)
}

// Create
// POST /api/establishments
func (ctrl *EstablishmentController) Create(c *gin.Context) {
	var req CreateEstablishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	establishment, err := ctrl.establishmentService.Create(adminActor(c, ctrl.systemActor), service.CreateEstablishmentInput{
		Name:                req.Name,
		City:                req.City,
		Representative:      req.Representative,
		RepresentativePhone: req.RepresentativePhone,
		Address:             req.Address,
	})
	if err != nil {
		respondError(c, err, "create establishment")
		return
	}
	c.JSON(http.StatusCreated, establishment)
}

// Get
// GET /api/establishments/:id
func (ctrl *EstablishmentController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	establishment, err := ctrl.establishmentService.Get(id)
	if err != nil {
		respondError(c, err, "load establishment")
		return
	}
	c.JSON(http.StatusOK, establishment)
}

// Update applies only the fields present in the body
// PUT /api/establishments/:id
func (ctrl *EstablishmentController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateEstablishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	establishment, err := ctrl.establishmentService.Update(adminActor(c, ctrl.systemActor), id, service.UpdateEstablishmentInput{
		Name:                req.Name,
		City:                req.City,
		Representative:      req.Representative,
		RepresentativePhone: req.RepresentativePhone,
		Address:             req.Address,
	})
	if err != nil {
		respondError(c, err, "update establishment")
		return
	}
	c.JSON(http.StatusOK, establishment)
}

// Archive
// DELETE /api/establishments/:id
func (ctrl *EstablishmentController) Archive(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	establishment, err := ctrl.establishmentService.Archive(adminActor(c, ctrl.systemActor), id)
	if err != nil {
		respondError(c, err, "archive establishment")
		return
	}
	c.JSON(http.StatusOK, establishment)
}

// Restore
// POST /api/establishments/:id/restore
func (ctrl *EstablishmentController) Restore(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	establishment, err := ctrl.establishmentService.Restore(adminActor(c, ctrl.systemActor), id)
	if err != nil {
		respondError(c, err, "restore establishment")
		return
	}
	c.JSON(http.StatusOK, establishment)
}
