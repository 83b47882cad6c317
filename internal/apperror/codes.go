package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Deposit-watch specific error codes
const (
	// Exchange gateway errors
	CodeExchangeUnknown      Code = "EXCHANGE_UNKNOWN"
	CodeExchangeAPIError     Code = "EXCHANGE_API_ERROR"
	CodeExchangeAuthFailed   Code = "EXCHANGE_AUTH_FAILED"
	CodeExchangeRateLimited  Code = "EXCHANGE_RATE_LIMITED"
	CodeDepositFetchFailed   Code = "DEPOSIT_FETCH_FAILED"
	CodeBalanceFetchFailed   Code = "BALANCE_FETCH_FAILED"
	CodeBalanceUnsupported   Code = "BALANCE_UNSUPPORTED"
	CodeExchangeCircuitOpen  Code = "EXCHANGE_CIRCUIT_OPEN"
	CodeDepositRecordInvalid Code = "DEPOSIT_RECORD_INVALID"
	CodeMissingCredentials   Code = "MISSING_CREDENTIALS"

	// Session / orchestration errors
	CodeSessionFrozen      Code = "SESSION_FROZEN"
	CodeNoExchangeSelected Code = "NO_EXCHANGE_SELECTED"
	CodeInvalidAmount      Code = "INVALID_AMOUNT"
	CodeInvalidRate        Code = "INVALID_RATE"
	CodeSessionStoreFailed Code = "SESSION_STORE_FAILED"

	// Transport errors
	CodeTelegramSendFailed Code = "TELEGRAM_SEND_FAILED"
	CodeTranslationMissing Code = "TRANSLATION_MISSING"
)
