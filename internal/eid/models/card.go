package models

// Card describes the ID card currently attached to a reader, as reported by
// the identity engine. RetryCounter is -1 when the engine did not report it.
type Card struct {
	Inoperative  bool
	Deactivated  bool
	RetryCounter int
}

// Reader describes a card reader known to the identity engine.
type Reader struct {
	Name     string
	Attached bool
	Keypad   bool
	Card     *Card
}

// Result is the outcome detail the identity engine attaches to a finished
// authentication. Major and Minor are result URIs; Major ends in "#ok" or
// "#error".
type Result struct {
	Major       string `json:"major,omitempty"`
	Minor       string `json:"minor,omitempty"`
	Language    string `json:"language,omitempty"`
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Certificate is the relying party's certificate description shown to the
// user before they accept the requested access rights.
type Certificate struct {
	IssuerName   string `json:"issuer_name,omitempty"`
	IssuerURL    string `json:"issuer_url,omitempty"`
	SubjectName  string `json:"subject_name,omitempty"`
	SubjectURL   string `json:"subject_url,omitempty"`
	Purpose      string `json:"purpose,omitempty"`
	TermsOfUsage string `json:"terms_of_usage,omitempty"`
}

// Validity is the certificate validity window. Dates are kept in the
// engine's textual form (YYYY-MM-DD).
type Validity struct {
	EffectiveDate  string `json:"effective_date,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}

// AccessRights is the set of data categories requested by the relying party
// for the current attempt.
type AccessRights struct {
	Effective []string `json:"effective"`
	Optional  []string `json:"optional,omitempty"`
	Required  []string `json:"required,omitempty"`
}

// Clone returns a deep copy so callers outside the controller cannot mutate
// its state.
func (a AccessRights) Clone() AccessRights {
	return AccessRights{
		Effective: append([]string(nil), a.Effective...),
		Optional:  append([]string(nil), a.Optional...),
		Required:  append([]string(nil), a.Required...),
	}
}
