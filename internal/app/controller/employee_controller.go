package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/internal/app/service"
	"github.com/wintergreen/academia-backend/internal/middleware"
)

type EmployeeController struct {
	employeeService service.EmployeeService
	systemActor     string
}

func NewEmployeeController(employeeService service.EmployeeService, systemActor string) *EmployeeController {
	return &EmployeeController{
		employeeService: employeeService,
		systemActor:     systemActor,
	}
}

type CreateEmployeeRequest struct {
	EstablishmentID string  `json:"establishment_id" binding:"required,uuid"`
	FullName        string  `json:"full_name" binding:"required,min=2"`
	Email           string  `json:"email" binding:"required,email"`
	City            *string `json:"city"`
	Phone           *string `json:"phone"`
}

type BulkCreateEmployeesRequest struct {
	Employees []CreateEmployeeRequest `json:"employees" binding:"required,min=1,max=500,dive"`
}

type UpdateEmployeeRequest struct {
	FullName *string               `json:"full_name" binding:"omitempty,min=2"`
	City     *string               `json:"city"`
	Phone    *string               `json:"phone"`
	Status   *model.EmployeeStatus `json:"status"`
}

type RestoreEmployeeRequest struct {
	EstablishmentID string `json:"establishment_id" binding:"omitempty,uuid"`
}

type TransferEmployeeRequest struct {
	EstablishmentID string  `json:"establishment_id" binding:"required,uuid"`
	Reason          *string `json:"reason"`
}

func (r CreateEmployeeRequest) input() service.CreateEmployeeInput {
	return service.CreateEmployeeInput{
		EstablishmentID: r.EstablishmentID,
		FullName:        r.FullName,
		Email:           r.Email,
		City:            r.City,
		Phone:           r.Phone,
	}
}

// List
// GET /api/employees?establishmentId=&status=&search=&includeArchived=true
func (ctrl *EmployeeController) List(c *gin.Context) {
	employees, err := ctrl.employeeService.List(repository.EmployeeFilter{
		EstablishmentID: c.Query("establishmentId"),
		Status:          model.EmployeeStatus(c.Query("status")),
		Search:          c.Query("search"),
		IncludeArchived: c.Query("includeArchived") == "true",
	})
	if err != nil {
		respondError(c, err, "load employees")
		return
	}
	c.JSON(http.StatusOK, employees)
}

// Create returns the employee with the registration link
// POST /api/employees
func (ctrl *EmployeeController) Create(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	created, err := ctrl.employeeService.Create(adminActor(c, ctrl.systemActor), req.input())
	if err != nil {
		respondError(c, err, "create employee")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// BulkCreate is all-or-nothing
// POST /api/employees/bulk
func (ctrl *EmployeeController) BulkCreate(c *gin.Context) {
	var req BulkCreateEmployeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	inputs := make([]service.CreateEmployeeInput, 0, len(req.Employees))
	for _, e := range req.Employees {
		inputs = append(inputs, e.input())
	}

	created, err := ctrl.employeeService.BulkCreate(adminActor(c, ctrl.systemActor), inputs)
	if err != nil {
		respondError(c, err, "bulk create employees")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Employees bulk created", map[string]interface{}{
		"count": len(created),
	})
	c.JSON(http.StatusCreated, gin.H{"created": created})
}

// Get
// GET /api/employees/:id
func (ctrl *EmployeeController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	employee, err := ctrl.employeeService.Get(id)
	if err != nil {
		respondError(c, err, "load employee")
		return
	}
	c.JSON(http.StatusOK, employee)
}

// Update
// PUT /api/employees/:id
func (ctrl *EmployeeController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	employee, err := ctrl.employeeService.Update(adminActor(c, ctrl.systemActor), id, service.UpdateEmployeeInput{
		FullName: req.FullName,
		City:     req.City,
		Phone:    req.Phone,
		Status:   req.Status,
	})
	if err != nil {
		respondError(c, err, "update employee")
		return
	}
	c.JSON(http.StatusOK, employee)
}

// Archive
// DELETE /api/employees/:id
func (ctrl *EmployeeController) Archive(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	employee, err := ctrl.employeeService.Archive(adminActor(c, ctrl.systemActor), id)
	if err != nil {
		respondError(c, err, "archive employee")
		return
	}
	c.JSON(http.StatusOK, employee)
}

// Restore accepts an optional target establishment
// POST /api/employees/:id/restore
func (ctrl *EmployeeController) Restore(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req RestoreEmployeeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	employee, err := ctrl.employeeService.Restore(adminActor(c, ctrl.systemActor), id, req.EstablishmentID)
	if err != nil {
		respondError(c, err, "restore employee")
		return
	}
	c.JSON(http.StatusOK, employee)
}

// Transfer
// POST /api/employees/:id/transfer
func (ctrl *EmployeeController) Transfer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TransferEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	employee, err := ctrl.employeeService.Transfer(adminActor(c, ctrl.systemActor), id, req.EstablishmentID, req.Reason)
	if err != nil {
		respondError(c, err, "transfer employee")
		return
	}
	c.JSON(http.StatusOK, employee)
}

// Transfers lists the establishment history, newest first
// GET /api/employees/:id/transfers
func (ctrl *EmployeeController) Transfers(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	transfers, err := ctrl.employeeService.ListTransfers(id)
	if err != nil {
		respondError(c, err, "load employee transfers")
		return
	}
	c.JSON(http.StatusOK, transfers)
}

// SendTraining responds before the invite email goes out
// POST /api/employees/:id/send-training
func (ctrl *EmployeeController) SendTraining(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	invite, err := ctrl.employeeService.SendTrainingInvite(adminActor(c, ctrl.systemActor), id)
	if err != nil {
		respondError(c, err, "send training invite")
		return
	}
	c.JSON(http.StatusOK, invite)
}
