package submission

import "errors"

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is a failure the client caused; Msg is safe to show to it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a submission error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

const (
	MsgRequired    = "Questionnaire ID and answers are required"
	MsgInvalidJSON = "Invalid JSON in answers field"
	MsgNotFound    = "Questionnaire not found"
	MsgEnumerator  = "Authenticated enumerator is required"
)
