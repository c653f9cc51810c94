package submit

import "github.com/ironsheep/scan-quiz/internal/ocrapi"

// GenericErrorMessage is the only failure text shown to users.
const GenericErrorMessage = "Error processing image. Please try again with a different image."

// State enumerates Outcome variants.
type State int

const (
	// StateIdle is the state before the first submission.
	StateIdle State = iota

	// StateLoading means a request is in flight.
	StateLoading

	// StateSuccess means the last request returned a result.
	StateSuccess

	// StateError means the last request failed.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the closed set of request lifecycle states.
type Outcome interface {
	State() State
	isOutcome()
}

// Idle means nothing has been submitted yet.
type Idle struct{}

// Loading means a request is in flight. Seq numbers submissions from 1.
type Loading struct {
	Seq uint64
}

// Success carries the backend's result. QAPairs keeps the server order.
type Success struct {
	Seq     uint64
	Text    string
	QAPairs []ocrapi.QAPair
}

// Failure carries the user-facing error message.
type Failure struct {
	Seq     uint64
	Message string
}

func (Idle) State() State    { return StateIdle }
func (Loading) State() State { return StateLoading }
func (Success) State() State { return StateSuccess }
func (Failure) State() State { return StateError }

func (Idle) isOutcome()    {}
func (Loading) isOutcome() {}
func (Success) isOutcome() {}
func (Failure) isOutcome() {}
