package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wintergreen/academia-backend/internal/app/service"
	apperrors "github.com/wintergreen/academia-backend/internal/errors"
	"github.com/wintergreen/academia-backend/internal/middleware"
	"github.com/wintergreen/academia-backend/pkg/sheet"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// serviceErrors is checked in order with errors.Is.
var serviceErrors = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid credentials"},
	{service.ErrEmployeeInactive, http.StatusForbidden, apperrors.AuthEmployeeInactive, "Employee is inactive"},
	{service.ErrUserNotFound, http.StatusNotFound, apperrors.ResourceNotFound, "User not found"},
	{service.ErrBootstrapNotConfigured, http.StatusInternalServerError, apperrors.InternalConfigError, "Admin bootstrap key is not configured"},
	{service.ErrInvalidBootstrapKey, http.StatusForbidden, apperrors.AuthInvalidBootstrap, "Invalid bootstrap key"},
	{service.ErrAdminAlreadyExists, http.StatusConflict, apperrors.AuthAdminExists, "Admin already exists"},

	{service.ErrEstablishmentNotFound, http.StatusNotFound, apperrors.EstablishmentNotFound, "Establishment not found"},
	{service.ErrEstablishmentArchived, http.StatusConflict, apperrors.EstablishmentArchived, "Establishment is archived"},
	{service.ErrEstablishmentAlreadyArchived, http.StatusConflict, apperrors.EstablishmentAlreadyArchived, "Establishment already archived"},
	{service.ErrEstablishmentAlreadyActive, http.StatusConflict, apperrors.EstablishmentAlreadyActive, "Establishment already active"},

	{service.ErrEmployeeNotFound, http.StatusNotFound, apperrors.EmployeeNotFound, "Employee not found"},
	{service.ErrEmployeeArchived, http.StatusConflict, apperrors.EmployeeArchived, "Employee is archived"},
	{service.ErrEmployeeAlreadyActive, http.StatusConflict, apperrors.EmployeeAlreadyActive, "Employee already active"},
	{service.ErrEmployeeAlreadyArchived, http.StatusConflict, apperrors.EmployeeAlreadyArchived, "Employee already archived"},
	{service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.EmployeeEmailExists, "Employee email already exists"},
	{service.ErrDuplicateEmailInBatch, http.StatusConflict, apperrors.EmployeeDuplicateInBatch, "Duplicate email in batch"},
	{service.ErrSameEstablishment, http.StatusConflict, apperrors.EmployeeAlreadyInEstablishment, "Employee already in establishment"},

	{service.ErrRegistrationNotFound, http.StatusNotFound, apperrors.RegistrationNotFound, "Registration link not found"},
	{service.ErrUserExists, http.StatusConflict, apperrors.AuthUserExists, "User already exists, please log in"},

	{service.ErrCertificateNotFound, http.StatusNotFound, apperrors.CertificateNotFound, "Certificate not found"},
	{service.ErrActiveCertificateExists, http.StatusConflict, apperrors.CertificateActiveExists, "Active certificate already exists"},
	{service.ErrCertificateAlreadyRevoked, http.StatusConflict, apperrors.CertificateAlreadyRevoked, "Certificate already revoked"},
	{service.ErrCertificateNumberConflict, http.StatusConflict, apperrors.CertificateNumberConflict, "Certificate number collision, please retry"},

	{service.ErrRequestNotFound, http.StatusNotFound, apperrors.RequestNotFound, "Request not found"},

	{sheet.ErrUnsupportedFormat, http.StatusBadRequest, apperrors.ImportUnsupportedFile, "Only .xlsx and .csv files are supported"},
	{sheet.ErrMalformed, http.StatusBadRequest, apperrors.ImportParseFailed, "Failed to parse file"},
}

// respondError writes the error response for a failed service call.
func respondError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		log.Warn("Request rejected by validation", map[string]interface{}{
			"action": action,
			"fields": validationErr.Fields,
		})
		apperrors.RespondWithValidationError(c, validationErr.Fields)
		return
	}

	var archivedErr *service.ArchivedEstablishmentsError
	if errors.As(err, &archivedErr) {
		log.Warn("Bulk create rejected: archived establishments", map[string]interface{}{
			"missing": archivedErr.Missing,
		})
		apperrors.ConflictWithMissing(c, apperrors.EstablishmentArchived, "Establishment is archived", archivedErr.Missing)
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				log.Error("Request failed", err, map[string]interface{}{"action": action})
			} else {
				log.Warn("Request rejected", map[string]interface{}{
					"action": action,
					"reason": m.code,
				})
			}
			apperrors.RespondWithError(c, m.status, m.code, m.message)
			return
		}
	}

	log.Error("Request failed", err, map[string]interface{}{"action": action})
	apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
}

// respondBindError reports binding failures field by field.
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromContext(c).Warn("Invalid request payload", map[string]interface{}{
		"path":  c.FullPath(),
		"error": err.Error(),
	})

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = "failed " + fe.Tag()
		}
		apperrors.RespondWithValidationError(c, fields)
		return
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid payload")
}

// uuidParam rejects malformed ids before they reach the store.
func uuidParam(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return "", false
	}
	return raw, true
}

// adminActor names the caller in audit entries.
func adminActor(c *gin.Context, systemName string) service.Actor {
	session := middleware.GetSession(c)
	if session == nil {
		return service.AdminActor("", systemName)
	}
	return service.AdminActor(session.Email, systemName)
}
