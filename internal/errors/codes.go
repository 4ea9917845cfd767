package errors

// Error codes returned in the "error" field of every failure response.
// Format: CATEGORY_SPECIFIC_DETAIL. The admin UI maps codes to messages.

const (
	// ==================== AUTH_ ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthInvalidBootstrap   = "AUTH_INVALID_BOOTSTRAP_KEY"
	AuthAdminExists        = "AUTH_ADMIN_EXISTS"
	AuthEmployeeInactive   = "AUTH_EMPLOYEE_INACTIVE"
	AuthUserExists         = "USER_EXISTS"

	// ==================== AUTHZ_ ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"

	// ==================== VALIDATION_ ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== RESOURCE_ ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== ESTABLISHMENT_ ====================
	EstablishmentNotFound        = "ESTABLISHMENT_NOT_FOUND"
	EstablishmentArchived        = "ESTABLISHMENT_ARCHIVED"
	EstablishmentAlreadyArchived = "ESTABLISHMENT_ALREADY_ARCHIVED"
	EstablishmentAlreadyActive   = "ESTABLISHMENT_ALREADY_ACTIVE"

	// ==================== EMPLOYEE_ ====================
	EmployeeNotFound               = "EMPLOYEE_NOT_FOUND"
	EmployeeArchived               = "EMPLOYEE_ARCHIVED"
	EmployeeAlreadyActive          = "EMPLOYEE_ALREADY_ACTIVE"
	EmployeeAlreadyArchived        = "EMPLOYEE_ALREADY_ARCHIVED"
	EmployeeInvalidStatus          = "EMPLOYEE_INVALID_STATUS"
	EmployeeEmailExists            = "EMPLOYEE_EMAIL_EXISTS"
	EmployeeDuplicateInBatch       = "EMPLOYEE_DUPLICATE_IN_BATCH"
	EmployeeAlreadyInEstablishment = "EMPLOYEE_ALREADY_IN_ESTABLISHMENT"
	RegistrationNotFound           = "REGISTRATION_NOT_FOUND"

	// ==================== CERTIFICATE_ ====================
	CertificateNotFound       = "CERTIFICATE_NOT_FOUND"
	CertificateActiveExists   = "CERTIFICATE_ACTIVE_EXISTS"
	CertificateAlreadyRevoked = "CERTIFICATE_ALREADY_REVOKED"
	CertificateNumberConflict = "CERTIFICATE_NUMBER_CONFLICT"

	// ==================== REQUEST_ ====================
	RequestNotFound = "REQUEST_NOT_FOUND"

	// ==================== IMPORT_ / UPLOAD_ ====================
	UploadMissingFile     = "UPLOAD_MISSING_FILE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	ImportUnsupportedFile = "IMPORT_UNSUPPORTED_FILE"
	ImportParseFailed     = "IMPORT_PARSE_FAILED"

	// ==================== RATE_ ====================
	RateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// ==================== INTERNAL_ ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
