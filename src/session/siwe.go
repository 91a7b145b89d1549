package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const siweHeader = " wants you to sign in with your Ethereum account:"

// Message is an EIP-4361 sign-in message.
type Message struct {
	Domain         string
	Address        common.Address
	Statement      string
	URI            string
	Version        string
	ChainID        uint64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime *time.Time
	NotBefore      *time.Time
	RequestID      string
	Resources      []string
}

// String renders the message in the exact layout wallets sign.
func (m Message) String() string {
	var sb strings.Builder

	sb.WriteString(m.Domain)
	sb.WriteString(siweHeader)
	sb.WriteString("\n")
	sb.WriteString(m.Address.Hex())
	sb.WriteString("\n\n")
	if m.Statement != "" {
		sb.WriteString(m.Statement)
		sb.WriteString("\n")
	}
	sb.WriteString("\nURI: ")
	sb.WriteString(m.URI)
	sb.WriteString("\nVersion: ")
	sb.WriteString(m.Version)
	sb.WriteString("\nChain ID: ")
	sb.WriteString(strconv.FormatUint(m.ChainID, 10))
	sb.WriteString("\nNonce: ")
	sb.WriteString(m.Nonce)
	sb.WriteString("\nIssued At: ")
	sb.WriteString(m.IssuedAt.UTC().Format(time.RFC3339))
	if m.ExpirationTime != nil {
		sb.WriteString("\nExpiration Time: ")
		sb.WriteString(m.ExpirationTime.UTC().Format(time.RFC3339))
	}
	if m.NotBefore != nil {
		sb.WriteString("\nNot Before: ")
		sb.WriteString(m.NotBefore.UTC().Format(time.RFC3339))
	}
	if m.RequestID != "" {
		sb.WriteString("\nRequest ID: ")
		sb.WriteString(m.RequestID)
	}
	if len(m.Resources) > 0 {
		sb.WriteString("\nResources:")
		for _, r := range m.Resources {
			sb.WriteString("\n- ")
			sb.WriteString(r)
		}
	}
	return sb.String()
}

var ErrMalformedMessage = errors.New("session: malformed sign-in message")

// ParseMessage is the inverse of Message.String.
func ParseMessage(raw string) (Message, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 3 || !strings.HasSuffix(lines[0], siweHeader) {
		return Message{}, fmt.Errorf("%w: missing header", ErrMalformedMessage)
	}
	var m Message
	m.Domain = strings.TrimSuffix(lines[0], siweHeader)
	if !common.IsHexAddress(lines[1]) {
		return Message{}, fmt.Errorf("%w: bad address", ErrMalformedMessage)
	}
	m.Address = common.HexToAddress(lines[1])

	inResources := false
	for _, line := range lines[2:] {
		if inResources {
			if r, ok := strings.CutPrefix(line, "- "); ok {
				m.Resources = append(m.Resources, r)
				continue
			}
			inResources = false
		}
		key, val, found := strings.Cut(line, ": ")
		if !found {
			switch {
			case line == "":
			case line == "Resources:":
				inResources = true
			case m.URI == "" && m.Statement == "":
				m.Statement = line
			default:
				return Message{}, fmt.Errorf("%w: unexpected line %q", ErrMalformedMessage, line)
			}
			continue
		}
		var err error
		switch key {
		case "URI":
			m.URI = val
		case "Version":
			m.Version = val
		case "Chain ID":
			m.ChainID, err = strconv.ParseUint(val, 10, 64)
		case "Nonce":
			m.Nonce = val
		case "Issued At":
			m.IssuedAt, err = time.Parse(time.RFC3339, val)
		case "Expiration Time":
			var t time.Time
			t, err = time.Parse(time.RFC3339, val)
			m.ExpirationTime = &t
		case "Not Before":
			var t time.Time
			t, err = time.Parse(time.RFC3339, val)
			m.NotBefore = &t
		case "Request ID":
			m.RequestID = val
		default:
			if m.URI == "" && m.Statement == "" {
				m.Statement = line
				continue
			}
			return Message{}, fmt.Errorf("%w: unknown field %q", ErrMalformedMessage, key)
		}
		if err != nil {
			return Message{}, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, key, err)
		}
	}
	if m.Nonce == "" || m.URI == "" || m.IssuedAt.IsZero() {
		return Message{}, fmt.Errorf("%w: missing required field", ErrMalformedMessage)
	}
	return m, nil
}

// NewNonce returns an alphanumeric nonce of 32 characters.
func NewNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
