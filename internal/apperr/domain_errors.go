package apperr

var (
	// Input validation, rejected before any storage call
	ErrNameRequired         = InvalidArg("please enter your name")
	ErrCodeRequired         = InvalidArg("please enter the pairing code")
	ErrInvalidCode          = InvalidArg("pairing code must be 6 letters or digits")
	ErrInvalidEmail         = InvalidArg("invalid email address")
	ErrWeakPassword         = InvalidArg("password must be at least 8 characters")
	ErrInvalidCoordinates   = InvalidArg("latitude must be within [-90,90] and longitude within [-180,180]")
	ErrInvalidAccuracy      = InvalidArg("accuracy must not be negative")
	ErrInvalidBattery       = InvalidArg("battery level must be within [0,100]")
	ErrInvalidHistoryPeriod = InvalidArg("history period must be one of 1, 3, 6, 12 or 24 hours")
	ErrInvalidDuration      = InvalidArg("duration must not be negative")
	ErrUnsupportedMedia     = InvalidArg("unsupported media type")
	ErrMediaURLOutsideGroup = InvalidArg("media url does not belong to this group")
	ErrUploadTooLarge       = New(CodeTooLarge, "upload too large")

	// Auth
	ErrEmailTaken         = AlreadyExists("email already registered")
	ErrInvalidCredentials = Unauthorized("invalid credentials")
	ErrInvalidToken       = Unauthorized("invalid token")

	// State
	ErrUserNotFound       = NotFound("user not found")
	ErrNotInGroup         = FailedPrecondition("join or create a group first")
	ErrMessageNotFound    = NotFound("voice message not found")
	ErrCodeSpaceExhausted = New(CodeInternal, "could not generate a unique pairing code")
)
