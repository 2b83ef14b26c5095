// Package apperrors provides chainable application errors that carry a closed error kind.
// Every error raised by the catalog, index, sync, resolver and query packages is built from
// one of the kinds below so callers can classify failures with KindOf.
package apperrors

// Kind classifies an error into the closed taxonomy exposed to callers.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in this module.
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidInput
	KindEmbeddingUnavailable
	KindDimensionMismatch
	KindNoMatchFound
	KindStaleIndexReference
	KindUpstreamQuery
	KindStore
)

var kindNames = map[Kind]string{
	KindUnknown:              "Unknown",
	KindNotFound:             "NotFound",
	KindInvalidInput:         "InvalidInput",
	KindEmbeddingUnavailable: "EmbeddingUnavailable",
	KindDimensionMismatch:    "DimensionMismatch",
	KindNoMatchFound:         "NoMatchFound",
	KindStaleIndexReference:  "StaleIndexReference",
	KindUpstreamQuery:        "UpstreamQueryError",
	KindStore:                "StoreError",
}

// String returns the kind name used in tool responses and logs.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error extends the standard error with wrapping, message and kind management.
// All methods return Error to support chaining.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetExpandError(bool) Error             // controls whether ErrorAll expands wrapped errors
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	Kind() Kind                            // returns the error kind
	ErrorAll() string                      // returns full message including wrapped errors
	UnwrapAll() []error                    // returns all wrapped errors
}
