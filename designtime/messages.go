package designtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Message types exchanged with the editor.
const (
	TypeInitialize          = "Initialize"
	TypeRefreshDependencies = "RefreshDependencies"
	TypeConfigurations      = "Configurations"
	TypeDependencyDiff      = "DependencyDiff"
	TypeError               = "Error"
)

// InitializeMessage opens a session for one project folder.
type InitializeMessage struct {
	Version       int    `json:"Version"`
	Configuration string `json:"Configuration"`
	ProjectFolder string `json:"ProjectFolder"`
}

// ConfigurationsMessage reports every target framework of the project.
type ConfigurationsMessage struct {
	Configurations []ConfigurationData `json:"Configurations"`
	Commands       map[string]string   `json:"Commands"`
}

// ConfigurationData is the resolution result for one target framework. A framework
// that failed to resolve carries Error and is still reported.
type ConfigurationData struct {
	FrameworkName       string                  `json:"FrameworkName"`
	LongFrameworkName   string                  `json:"LongFrameworkName"`
	CompilationSettings CompilationSettings     `json:"CompilationSettings"`
	Dependencies        []DependencyDescription `json:"Dependencies"`
	References          []string                `json:"References"`
	Diagnostics         []string                `json:"Diagnostics"`
	Error               string                  `json:"Error,omitempty"`
}

// CompilationSettings are the compiler switches from the manifest.
type CompilationSettings struct {
	AllowUnsafe      bool   `json:"AllowUnsafe"`
	Platform         string `json:"Platform"`
	WarningsAsErrors bool   `json:"WarningsAsErrors"`
}

// DependencyDescription is one library of a resolved graph.
type DependencyDescription struct {
	Name         string   `json:"Name"`
	Version      string   `json:"Version"`
	Type         string   `json:"Type"`
	Path         string   `json:"Path,omitempty"`
	Resolved     bool     `json:"Resolved"`
	Dependencies []string `json:"Dependencies"`
}

// ErrorMessage is the payload of a TypeError message.
type ErrorMessage struct {
	Message string `json:"Message"`
}

// Message is the envelope every payload travels in.
type Message struct {
	MessageType string          `json:"MessageType"`
	ContextID   int             `json:"ContextId"`
	Payload     json.RawMessage `json:"Payload,omitempty"`
}

// DecodePayload unmarshals the payload into v.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message: empty payload", m.MessageType)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s message: %w", m.MessageType, err)
	}
	return nil
}

// Encoder writes messages to a stream. It is safe for concurrent use.
type Encoder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewEncoder returns an encoder writing one JSON message per line to w.
func NewEncoder(w io.Writer) *Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Encoder{enc: enc}
}

// Encode wraps payload in an envelope and writes it.
func (e *Encoder) Encode(messageType string, contextID int, payload any) error {
	msg := Message{MessageType: messageType, ContextID: contextID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", messageType, err)
		}
		msg.Payload = data
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(msg)
}

// Decoder reads messages from a stream.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Decode reads the next message. It returns io.EOF when the stream ends cleanly.
func (d *Decoder) Decode() (*Message, error) {
	var msg Message
	if err := d.dec.Decode(&msg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if msg.MessageType == "" {
		return nil, errors.New("decode message: missing MessageType")
	}
	return &msg, nil
}
