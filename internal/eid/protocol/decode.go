package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"eidgate/internal/eid/models"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrMissingKind = errors.New("message has no msg field")
)

// errorMajorMarker identifies a failed result major URI.
const errorMajorMarker = "#error"

type wireCard struct {
	Inoperative  *bool `json:"inoperative"`
	Deactivated  *bool `json:"deactivated"`
	RetryCounter *int  `json:"retryCounter"`
}

type wireReader struct {
	Name     string    `json:"name"`
	Attached bool      `json:"attached"`
	Keypad   bool      `json:"keypad"`
	Card     *wireCard `json:"card"`
}

type wireChat struct {
	Effective []string `json:"effective"`
	Optional  []string `json:"optional"`
	Required  []string `json:"required"`
}

type wireDescription struct {
	IssuerName   string `json:"issuerName"`
	IssuerURL    string `json:"issuerUrl"`
	SubjectName  string `json:"subjectName"`
	SubjectURL   string `json:"subjectUrl"`
	Purpose      string `json:"purpose"`
	TermsOfUsage string `json:"termsOfUsage"`
}

type wireValidity struct {
	EffectiveDate  string `json:"effectiveDate"`
	ExpirationDate string `json:"expirationDate"`
}

type wireMessage struct {
	Msg    Kind           `json:"msg"`
	Error  *string        `json:"error"`
	Result *models.Result `json:"result"`
	URL    *string        `json:"url"`

	Chat *wireChat `json:"chat"`

	// ENTER_PIN, ENTER_PUK, ENTER_CAN carry the reader nested.
	Reader *wireReader `json:"reader"`

	// READER carries the reader fields at top level.
	wireReader

	Description *wireDescription `json:"description"`
	Validity    *wireValidity    `json:"validity"`

	Workflow string `json:"workflow"`
	Progress *int   `json:"progress"`
	State    string `json:"state"`
}

// Decode maps one raw payload to exactly one Message. It never fails: input
// that cannot be decoded yields DecodeError.
func Decode(raw []byte) Message {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return DecodeError{Err: fmt.Errorf("%w: empty payload", ErrMalformed)}
	}

	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return DecodeError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	if w.Msg == "" {
		return DecodeError{Err: ErrMissingKind}
	}

	switch w.Msg {
	case KindAuth:
		return decodeAuth(&w)
	case KindAccessRights:
		return decodeAccessRights(&w)
	case KindInsertCard:
		return InsertCard{}
	case KindEnterPin:
		return decodeEnterPin(&w)
	case KindEnterPuk:
		return EnterPuk{}
	case KindEnterCan:
		return EnterCan{}
	case KindCertificate:
		return decodeCertificate(&w)
	case KindBadState:
		return ProtocolError{Error: deref(w.Error)}
	case KindReader:
		return decodeReader(&w)
	case KindStatus:
		st := Status{Workflow: w.Workflow, State: w.State}
		if w.Progress != nil {
			st.Progress = *w.Progress
		}
		return st
	default:
		return Unknown{Kind: w.Msg}
	}
}

// decodeAuth applies the AUTH precedence: error, started, error result,
// completed, unknown.
func decodeAuth(w *wireMessage) Message {
	if w.Error != nil {
		return AuthFailed{Error: *w.Error}
	}
	if w.Result == nil && w.URL == nil {
		return AuthenticationStarted{}
	}
	if w.Result != nil && strings.Contains(w.Result.Major, errorMajorMarker) {
		return AuthErrorResult{Result: *w.Result, URL: deref(w.URL)}
	}
	if url := strings.TrimSpace(deref(w.URL)); url != "" {
		return Completed{URL: url, Result: w.Result}
	}
	return Unknown{Kind: w.Msg}
}

func decodeAccessRights(w *wireMessage) Message {
	if w.Chat == nil {
		return AccessRights{Rights: models.AccessRights{Effective: []string{}}}
	}
	rights := models.AccessRights{
		Effective: w.Chat.Effective,
		Optional:  w.Chat.Optional,
		Required:  w.Chat.Required,
	}
	if rights.Effective == nil {
		rights.Effective = []string{}
	}
	return AccessRights{Rights: rights}
}

func decodeEnterPin(w *wireMessage) Message {
	msg := EnterPin{Retries: DefaultPinRetries}
	if w.Reader == nil {
		return msg
	}
	reader := toReader(w.Reader)
	msg.Reader = &reader
	if w.Reader.Card != nil && w.Reader.Card.RetryCounter != nil {
		msg.Retries = *w.Reader.Card.RetryCounter
	}
	return msg
}

func decodeCertificate(w *wireMessage) Message {
	var msg CertificateReady
	if d := w.Description; d != nil {
		msg.Certificate = models.Certificate{
			IssuerName:   d.IssuerName,
			IssuerURL:    d.IssuerURL,
			SubjectName:  d.SubjectName,
			SubjectURL:   d.SubjectURL,
			Purpose:      d.Purpose,
			TermsOfUsage: d.TermsOfUsage,
		}
	}
	if v := w.Validity; v != nil {
		msg.Validity = models.Validity{
			EffectiveDate:  v.EffectiveDate,
			ExpirationDate: v.ExpirationDate,
		}
	}
	return msg
}

func decodeReader(w *wireMessage) Message {
	reader := toReader(&w.wireReader)
	if reader.Card != nil && reader.Card.Inoperative {
		return CardBlocked{Reader: reader}
	}
	return CardRecognized{Reader: reader, Card: reader.Card}
}

func toReader(r *wireReader) models.Reader {
	reader := models.Reader{
		Name:     r.Name,
		Attached: r.Attached,
		Keypad:   r.Keypad,
	}
	// An empty card object means the reader reports no card.
	if c := r.Card; c != nil && (c.Inoperative != nil || c.Deactivated != nil || c.RetryCounter != nil) {
		card := &models.Card{RetryCounter: -1}
		if c.Inoperative != nil {
			card.Inoperative = *c.Inoperative
		}
		if c.Deactivated != nil {
			card.Deactivated = *c.Deactivated
		}
		if c.RetryCounter != nil {
			card.RetryCounter = *c.RetryCounter
		}
		reader.Card = card
	}
	return reader
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
