package model

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&Establishment{},
		&Employee{},
		&EmployeeTransfer{},
		&User{},
		&Certificate{},
		&CertificateHistory{},
		&TrainingResult{},
		&AuditLog{},
		&Request{},
	}
}
