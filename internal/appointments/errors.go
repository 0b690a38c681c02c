package appointments

// ErrorKind classifies business failures so the HTTP layer can pick a
// status code without string matching.
type ErrorKind int

const (
	KindInvalidRequest ErrorKind = iota
	KindConflict
	KindSlotUnavailable
	KindNotFound
)

// BusinessError is a caller-visible failure with a human-readable message.
// Anything that is not a BusinessError is treated as an internal error.
type BusinessError struct {
	Kind ErrorKind
	Msg  string
}

func (e *BusinessError) Error() string {
	return e.Msg
}

func invalidRequest(msg string) error {
	return &BusinessError{Kind: KindInvalidRequest, Msg: msg}
}

func conflict(msg string) error {
	return &BusinessError{Kind: KindConflict, Msg: msg}
}

func slotUnavailable(msg string) error {
	return &BusinessError{Kind: KindSlotUnavailable, Msg: msg}
}

func notFound(msg string) error {
	return &BusinessError{Kind: KindNotFound, Msg: msg}
}
