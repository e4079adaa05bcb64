package models

// StateKind names a SessionState variant. It is the stable identifier used in
// logs, metrics labels and the HTTP bridge.
type StateKind string

const (
	StateLoading     StateKind = "loading"
	StateAttachCard  StateKind = "attach_card"
	StateInsertPin   StateKind = "insert_pin"
	StateInsertPuk   StateKind = "insert_puk"
	StateInsertCan   StateKind = "insert_can"
	StateCardBlocked StateKind = "card_blocked"
	StateShowInfo    StateKind = "show_info"
	StateSuccess     StateKind = "success"
	StateError       StateKind = "error"
)

// IsTerminal reports whether the state ends the identification attempt from
// the UI's point of view.
func (k StateKind) IsTerminal() bool {
	return k == StateSuccess || k == StateError
}

// SessionState is the closed set of states presented to the UI.
// Only types in this package implement it.
type SessionState interface {
	Kind() StateKind
	sessionState()
}

type Loading struct{}

type AttachCard struct{}

// InsertPin asks for the PIN; RetriesRemaining is the card's retry counter.
type InsertPin struct {
	RetriesRemaining int
}

type InsertPuk struct{}

type InsertCan struct{}

type CardBlocked struct{}

// ShowInfo presents the requested access rights and the relying party's
// certificate so the user can accept or cancel.
type ShowInfo struct {
	AccessRights AccessRights
	Certificate  Certificate
	Validity     Validity
}

// Success carries the URL the UI must open to finish the login at the
// relying party.
type Success struct {
	RedirectURL string
}

// Error ends the attempt. Result is nil when the failure is local (decode
// error, bad state) rather than reported by the engine.
type Error struct {
	Result *Result
}

func (Loading) Kind() StateKind     { return StateLoading }
func (AttachCard) Kind() StateKind  { return StateAttachCard }
func (InsertPin) Kind() StateKind   { return StateInsertPin }
func (InsertPuk) Kind() StateKind   { return StateInsertPuk }
func (InsertCan) Kind() StateKind   { return StateInsertCan }
func (CardBlocked) Kind() StateKind { return StateCardBlocked }
func (ShowInfo) Kind() StateKind    { return StateShowInfo }
func (Success) Kind() StateKind     { return StateSuccess }
func (Error) Kind() StateKind       { return StateError }

func (Loading) sessionState()     {}
func (AttachCard) sessionState()  {}
func (InsertPin) sessionState()   {}
func (InsertPuk) sessionState()   {}
func (InsertCan) sessionState()   {}
func (CardBlocked) sessionState() {}
func (ShowInfo) sessionState()    {}
func (Success) sessionState()     {}
func (Error) sessionState()       {}
