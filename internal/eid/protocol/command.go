package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Command names understood by the identity engine.
const (
	CmdRunAuth         = "RUN_AUTH"
	CmdGetCertificate  = "GET_CERTIFICATE"
	CmdGetAccessRights = "GET_ACCESS_RIGHTS"
	CmdSetPin          = "SET_PIN"
	CmdSetPuk          = "SET_PUK"
	CmdSetCan          = "SET_CAN"
	CmdAccept          = "ACCEPT"
	CmdCancel          = "CANCEL"
	CmdGetReaderList   = "GET_READER_LIST"
	CmdGetStatus       = "GET_STATUS"
	CmdGetInfo         = "GET_INFO"
	CmdGetAPILevel     = "GET_API_LEVEL"
)

// Payload keys.
const (
	KeyTCTokenURL = "tcTokenURL"
	KeyValue      = "value"
)

// plainCommands may be sent through SendCommand: they take no payload.
var plainCommands = map[string]struct{}{
	CmdGetCertificate:  {},
	CmdGetAccessRights: {},
	CmdAccept:          {},
	CmdCancel:          {},
	CmdGetReaderList:   {},
	CmdGetStatus:       {},
	CmdGetInfo:         {},
	CmdGetAPILevel:     {},
}

// IsPlainCommand reports whether name is a known command without payload.
func IsPlainCommand(name string) bool {
	_, ok := plainCommands[name]
	return ok
}

// Command is one outbound command with at most one payload pair.
type Command struct {
	Name  string
	Key   string
	Value string
}

// NewCommand builds a command without payload.
func NewCommand(name string) Command {
	return Command{Name: name}
}

// NewCommandWith builds a command carrying a single key/value pair.
func NewCommandWith(name, key, value string) Command {
	return Command{Name: name, Key: key, Value: value}
}

// CarriesSecret reports whether the payload is a PIN, PUK or CAN and must not
// be logged.
func (c Command) CarriesSecret() bool {
	switch c.Name {
	case CmdSetPin, CmdSetPuk, CmdSetCan:
		return true
	}
	return false
}

// String renders the command for logs without its payload value.
func (c Command) String() string {
	if c.Key == "" {
		return c.Name
	}
	return c.Name + "(" + c.Key + ")"
}

// Encode renders the wire text: {"cmd":"NAME"} or {"cmd":"NAME","key":"value"}.
// Keys keep their order and no whitespace is added.
func Encode(c Command) string {
	var b strings.Builder
	b.WriteString(`{"cmd":`)
	b.WriteString(quote(c.Name))
	if c.Key != "" {
		b.WriteByte(',')
		b.WriteString(quote(c.Key))
		b.WriteByte(':')
		b.WriteString(quote(c.Value))
	}
	b.WriteByte('}')
	return b.String()
}

// quote renders s as a JSON string literal. HTML characters stay literal so
// token URLs reach the engine unchanged.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
