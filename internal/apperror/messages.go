package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Exchange gateway errors
	CodeExchangeUnknown:      "Unknown exchange",
	CodeExchangeAPIError:     "Exchange API error",
	CodeExchangeAuthFailed:   "Exchange authentication failed",
	CodeExchangeRateLimited:  "Exchange rate limit exceeded",
	CodeDepositFetchFailed:   "Failed to fetch deposit history",
	CodeBalanceFetchFailed:   "Failed to fetch funding balance",
	CodeBalanceUnsupported:   "Funding balance not supported on this exchange",
	CodeExchangeCircuitOpen:  "Exchange circuit breaker is open",
	CodeDepositRecordInvalid: "Invalid deposit record",
	CodeMissingCredentials:   "Exchange credentials missing",

	// Session / orchestration errors
	CodeSessionFrozen:      "A payment session is already in progress",
	CodeNoExchangeSelected: "No exchange selected",
	CodeInvalidAmount:      "Invalid amount",
	CodeInvalidRate:        "Invalid conversion rate",
	CodeSessionStoreFailed: "Session store operation failed",

	// Transport errors
	CodeTelegramSendFailed: "Failed to send Telegram message",
	CodeTranslationMissing: "Missing translation key",
}
