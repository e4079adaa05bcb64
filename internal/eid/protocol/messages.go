package protocol

import "eidgate/internal/eid/models"

// Kind is the value of the "msg" discriminator in an inbound payload.
type Kind string

const (
	KindAuth         Kind = "AUTH"
	KindAccessRights Kind = "ACCESS_RIGHTS"
	KindInsertCard   Kind = "INSERT_CARD"
	KindEnterPin     Kind = "ENTER_PIN"
	KindEnterPuk     Kind = "ENTER_PUK"
	KindEnterCan     Kind = "ENTER_CAN"
	KindCertificate  Kind = "CERTIFICATE"
	KindBadState     Kind = "BAD_STATE"
	KindReader       Kind = "READER"
	KindStatus       Kind = "STATUS"
)

// DefaultPinRetries is assumed when ENTER_PIN carries no retry counter.
const DefaultPinRetries = 3

// Message is one decoded inbound protocol message. The set of
// implementations is closed; the controller switches over it exhaustively.
type Message interface {
	// Name is a short stable label for logs and metrics.
	Name() string
	message()
}

// AuthenticationStarted marks that the engine accepted RUN_AUTH; access
// rights messages are meaningful from here on.
type AuthenticationStarted struct{}

// AuthFailed is an AUTH message carrying an explicit error field.
type AuthFailed struct {
	Error string
}

// AuthErrorResult is an AUTH message whose result major contains "#error".
type AuthErrorResult struct {
	Result models.Result
	URL    string
}

// Completed is a successful AUTH message with the redirect URL.
type Completed struct {
	URL    string
	Result *models.Result
}

type AccessRights struct {
	Rights models.AccessRights
}

type InsertCard struct{}

type EnterPin struct {
	Retries int
	Reader  *models.Reader
}

type EnterPuk struct{}

type EnterCan struct{}

type CertificateReady struct {
	Certificate models.Certificate
	Validity    models.Validity
}

// ProtocolError is a BAD_STATE message: the engine rejected the last command
// for the current workflow state.
type ProtocolError struct {
	Error string
}

// CardBlocked is a READER message whose card is inoperative.
type CardBlocked struct {
	Reader models.Reader
}

// CardRecognized is a READER message; Card is nil when no card is on the
// reader.
type CardRecognized struct {
	Reader models.Reader
	Card   *models.Card
}

// Status is informational progress and never changes the session state.
type Status struct {
	Workflow string
	Progress int
	State    string
}

// Unknown is any well-formed message the controller does not act on.
type Unknown struct {
	Kind Kind
}

// DecodeError wraps a payload that could not be decoded at all.
type DecodeError struct {
	Err error
}

func (AuthenticationStarted) Name() string { return "auth_started" }
func (AuthFailed) Name() string            { return "auth_failed" }
func (AuthErrorResult) Name() string       { return "auth_error_result" }
func (Completed) Name() string             { return "completed" }
func (AccessRights) Name() string          { return "access_rights" }
func (InsertCard) Name() string            { return "insert_card" }
func (EnterPin) Name() string              { return "enter_pin" }
func (EnterPuk) Name() string              { return "enter_puk" }
func (EnterCan) Name() string              { return "enter_can" }
func (CertificateReady) Name() string      { return "certificate" }
func (ProtocolError) Name() string         { return "bad_state" }
func (CardBlocked) Name() string           { return "card_blocked" }
func (CardRecognized) Name() string        { return "reader" }
func (Status) Name() string                { return "status" }
func (Unknown) Name() string               { return "unknown" }
func (DecodeError) Name() string           { return "decode_error" }

func (AuthenticationStarted) message() {}
func (AuthFailed) message()            {}
func (AuthErrorResult) message()       {}
func (Completed) message()             {}
func (AccessRights) message()          {}
func (InsertCard) message()            {}
func (EnterPin) message()              {}
func (EnterPuk) message()              {}
func (EnterCan) message()              {}
func (CertificateReady) message()      {}
func (ProtocolError) message()         {}
func (CardBlocked) message()           {}
func (CardRecognized) message()        {}
func (Status) message()                {}
func (Unknown) message()               {}
func (DecodeError) message()           {}
