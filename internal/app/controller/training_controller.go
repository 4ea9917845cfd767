package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wintergreen/academia-backend/internal/app/service"
	apperrors "github.com/wintergreen/academia-backend/internal/errors"
	"github.com/wintergreen/academia-backend/internal/middleware"
)

type TrainingController struct {
	importService service.TrainingImportService
	maxFileSize   int64
	systemActor   string
}

func NewTrainingController(importService service.TrainingImportService, maxFileSize int64, systemActor string) *TrainingController {
	return &TrainingController{
		importService: importService,
		maxFileSize:   maxFileSize,
		systemActor:   systemActor,
	}
}

// Import reconciles an uploaded results sheet
// POST /api/training/import (multipart field "file")
func (ctrl *TrainingController) Import(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.maxFileSize+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.RespondWithError(c, http.StatusRequestEntityTooLarge, apperrors.UploadFileTooLarge, "File is too large")
			return
		}
		log.Warn("Training import without file", map[string]interface{}{"error": err.Error()})
		apperrors.BadRequest(c, apperrors.UploadMissingFile, "File is required")
		return
	}
	if header.Size > ctrl.maxFileSize {
		apperrors.RespondWithError(c, http.StatusRequestEntityTooLarge, apperrors.UploadFileTooLarge, "File is too large")
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, err, "read import file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, err, "read import file")
		return
	}

	report, err := ctrl.importService.Import(c.Request.Context(), adminActor(c, ctrl.systemActor), header.Filename, data)
	if err != nil {
		respondError(c, err, "import training results")
		return
	}

	log.Info("Training results imported", map[string]interface{}{
		"processed":           report.Processed,
		"matched":             report.Matched,
		"certificatesCreated": report.CertificatesCreated,
	})
	c.JSON(http.StatusOK, report)
}

// Results lists an employee's imported training outcomes
// GET /api/employees/:id/training-results
func (ctrl *TrainingController) Results(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	results, err := ctrl.importService.ListResults(id)
	if err != nil {
		respondError(c, err, "load training results")
		return
	}
	c.JSON(http.StatusOK, results)
}
