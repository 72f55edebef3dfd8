package handlers

const (
	OAuthStateCookieName = "oauth_state"

	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
	ErrActivityNotFound    = "Activity not found"
	ErrTooManyRequests     = "Too many requests. Please wait a moment."
)

// Spoken notices, read aloud by the client alongside the toast
const (
	SpeakStepAlreadyDone  = "This step is already done. Let's go to the next one."
	SpeakFinishAllSteps   = "Finish all the steps first."
	SpeakTryAgain         = "Something went wrong. Please try again."
	SpeakProgressNotSaved = "Your progress could not be saved. Please try again."
	SpeakWrongPIN         = "That PIN is not right."
)
