// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeyInternalError     = "error.internal"
	KeyRateLimited       = "error.rate_limited"
	KeyValidationInvalid = "validation.invalid"
	KeyInvalidID         = "validation.invalid_id"
	KeyConflict          = "error.conflict"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLoginSuccess       = "auth.login_success"

	// Trades
	KeyTradeNotFound  = "trade.not_found"
	KeyTradeCreated   = "trade.created"
	KeyTradeCanceled  = "trade.canceled"
	KeyTradeCompleted = "trade.completed"

	// Traders
	KeyTraderNotFound = "trader.not_found"
	KeyTraderDeleted  = "trader.deleted"

	// Catalog
	KeyCapNotFound      = "cap.not_found"
	KeyInstanceNotFound = "instance.not_found"
	KeyResourceNotFound = "resource.not_found"
)
