package errcode

// Error codes carried in websocket events and redis notifications:
// - 0: no error
// - 4xxx: recoverable, caused by the request (validation, missing resource, quota)
// - 5xxx: system errors
const (
	OK               = 0
	ValidationFailed = 4000
	Unauthenticated  = 4001
	ResourceMissing  = 4004
	QuotaExceeded    = 4029
	SystemError      = 5000
	SaveFailed       = 5001
	GenerationFailed = 5002
)
