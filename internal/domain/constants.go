package domain

// Transaction directions.
const (
	DirectionOnRamp  = "onramp"
	DirectionOffRamp = "offramp"
)

// Transaction statuses. PENDING and PROCESSING are the only non-terminal states.
const (
	TxStatusPending    = "PENDING"
	TxStatusProcessing = "PROCESSING"
	TxStatusCompleted  = "COMPLETED"
	TxStatusFailed     = "FAILED"
	TxStatusCancelled  = "CANCELLED"
)

// Payment methods (Provider Gateway implementations).
const (
	PaymentMethodMpesa     = "mpesa"
	PaymentMethodIntersend = "intersend"
)

// Provider terminal statuses as reported on callbacks.
const (
	ProviderStatusSuccess = "success"
	ProviderStatusFailure = "failure"
	ProviderStatusCancel  = "cancel"
)

// On-chain contract status codes (RampHub contract enum).
const (
	ContractStatusInitiated = 1
	ContractStatusCompleted = 2
	ContractStatusFailed    = 3
	ContractStatusCancelled = 4
)

// Investment statuses.
const (
	InvestmentStatusActive    = "ACTIVE"
	InvestmentStatusMatured   = "MATURED"
	InvestmentStatusWithdrawn = "WITHDRAWN"
	InvestmentStatusCancelled = "CANCELLED"
)

// Student enrollment statuses.
const (
	EnrollmentActive    = "active"
	EnrollmentGraduated = "graduated"
	EnrollmentDropped   = "dropped"
)
