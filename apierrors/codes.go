package apierrors

// Code identifies a backend or transport failure category. The backend emits
// these in its error envelope; transport failures are classified locally.
type Code string

const (
	CodeInvalidCredentials      Code = "INVALID_CREDENTIALS"
	CodeTokenExpired            Code = "TOKEN_EXPIRED"
	CodeTokenBlacklisted        Code = "TOKEN_BLACKLISTED"
	CodeTokenMissing            Code = "TOKEN_MISSING"
	CodeRefreshTokenInvalid     Code = "REFRESH_TOKEN_INVALID"
	CodeUserInactive            Code = "USER_INACTIVE"
	CodeInsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"
	CodeValidationError         Code = "VALIDATION_ERROR"
	CodeRateLimited             Code = "RATE_LIMITED"
	CodeServiceUnavailable      Code = "SERVICE_UNAVAILABLE"
	CodeDatabaseError           Code = "DATABASE_ERROR"
	CodeNetworkError            Code = "NETWORK_ERROR"
	CodeTimeoutError            Code = "TIMEOUT_ERROR"
	CodeUnknown                 Code = "UNKNOWN"
)

// Descriptor carries the user-displayable framing of a Code.
type Descriptor struct {
	Code    Code
	Title   string
	Message string
	Action  string
}

var descriptors = map[Code]Descriptor{
	CodeInvalidCredentials:      {CodeInvalidCredentials, "Sign-in failed", "The credential or password is incorrect.", "Check your details and try again."},
	CodeTokenExpired:            {CodeTokenExpired, "Session expired", "Your session has expired.", "Sign in again to continue."},
	CodeTokenBlacklisted:        {CodeTokenBlacklisted, "Session revoked", "Your session has been revoked.", "Sign in again to continue."},
	CodeTokenMissing:            {CodeTokenMissing, "Not signed in", "No session credential was provided.", "Sign in to continue."},
	CodeRefreshTokenInvalid:     {CodeRefreshTokenInvalid, "Session expired", "Your session could not be renewed.", "Sign in again to continue."},
	CodeUserInactive:            {CodeUserInactive, "Account inactive", "This account has been deactivated.", "Contact an administrator."},
	CodeInsufficientPermissions: {CodeInsufficientPermissions, "Not allowed", "You do not have permission to do that.", "Contact an administrator if you need access."},
	CodeValidationError:         {CodeValidationError, "Invalid input", "The request contained invalid data.", "Correct the highlighted fields and retry."},
	CodeRateLimited:             {CodeRateLimited, "Too many requests", "You are sending requests too quickly.", "Wait a moment and retry."},
	CodeServiceUnavailable:      {CodeServiceUnavailable, "Service unavailable", "The service is temporarily unavailable.", "Retry shortly."},
	CodeDatabaseError:           {CodeDatabaseError, "Service error", "A storage error occurred on the server.", "Retry shortly."},
	CodeNetworkError:            {CodeNetworkError, "Cannot reach server", "The server could not be reached.", "Check your connection and retry."},
	CodeTimeoutError:            {CodeTimeoutError, "Request timed out", "The server took too long to respond.", "Retry shortly."},
	CodeUnknown:                 {CodeUnknown, "Unexpected error", "Something went wrong.", "Retry, or contact support if it persists."},
}

// Describe returns the display descriptor for a code, falling back to the
// Unknown descriptor for codes the client does not recognise.
func Describe(code Code) Descriptor {
	if d, ok := descriptors[code]; ok {
		return d
	}
	return descriptors[CodeUnknown]
}

// hardLogoutCodes are authentication failures that can never be resolved by
// refreshing; only a new login recovers them.
var hardLogoutCodes = map[Code]struct{}{
	CodeTokenExpired:        {},
	CodeTokenBlacklisted:    {},
	CodeTokenMissing:        {},
	CodeRefreshTokenInvalid: {},
	CodeUserInactive:        {},
}

// retryableCodes may clear on their own; generic retry policies may act on
// them. The session core itself only ever retries the single
// refresh-triggered replay.
var retryableCodes = map[Code]struct{}{
	CodeServiceUnavailable: {},
	CodeDatabaseError:      {},
	CodeNetworkError:       {},
	CodeTimeoutError:       {},
}

func IsHardLogout(code Code) bool {
	_, ok := hardLogoutCodes[code]
	return ok
}

func IsRetryable(code Code) bool {
	_, ok := retryableCodes[code]
	return ok
}
