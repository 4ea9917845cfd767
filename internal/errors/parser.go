package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a client-safe description of an error
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps store and infrastructure errors to client-safe codes.
// Driver text never reaches the client.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}

	lower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "unique constraint") {
		return parseDuplicateKey(lower)
	}

	if errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(lower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceNotFound, Message: "Referenced record does not exist"}
	}

	if strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout") {
		return ErrorInfo{Code: InternalDatabaseError, Message: "Storage is temporarily unavailable, please retry"}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func parseDuplicateKey(lower string) ErrorInfo {
	switch {
	case strings.Contains(lower, "certificate_number"):
		return ErrorInfo{Code: CertificateNumberConflict, Message: "Certificate number collision, please retry"}
	case strings.Contains(lower, "email"):
		return ErrorInfo{Code: EmployeeEmailExists, Message: "Email already exists"}
	default:
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Record already exists"}
	}
}

func notFoundMessage(context string) string {
	lower := strings.ToLower(context)
	for _, entity := range []string{"establishment", "employee", "certificate", "request", "user"} {
		if strings.Contains(lower, entity) {
			return strings.ToUpper(entity[:1]) + entity[1:] + " not found"
		}
	}
	return "Requested record not found"
}

func defaultMessage(context string) string {
	if context == "" {
		return "Unexpected server error, please retry later"
	}
	return "Failed to " + context
}

// ParseAndRespond parses err and writes it with the given status
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
