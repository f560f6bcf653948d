package sync

// ErrorKind classifies a per-source refresh failure
type ErrorKind string

const (
	// KindConfig means the source descriptor is missing, unreadable or unusable
	KindConfig ErrorKind = "config"

	// KindTransport means the network fetch failed or returned a non-2xx status
	KindTransport ErrorKind = "transport"

	// KindStorage means the snapshot could not be read or written
	KindStorage ErrorKind = "storage"
)

// Condition reasons recorded on failed outcomes
const (
	conditionReasonDescriptorUnavailable = "DescriptorUnavailable"
	conditionReasonBundleUnavailable     = "BundleUnavailable"
	conditionReasonFetchFailed           = "FetchFailed"
	conditionReasonStorageFailed         = "StorageFailed"
)

// Error represents a structured refresh failure for one source
type Error struct {
	Err             error
	Message         string
	Kind            ErrorKind
	ConditionReason string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
