package session

// State tracks a trace session through its pipeline stages.
type State string

const (
	StateUploaded         State = "uploaded"
	StateFaceDetected     State = "face_detected"
	StatePublished        State = "published"
	StateSearching        State = "searching"
	StateVerifying        State = "verifying"
	StateCrossReferencing State = "cross_referencing"
	StateCleaned          State = "cleaned"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)
