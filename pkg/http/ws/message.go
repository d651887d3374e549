package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeStartSession = "start_session"
	TypeStopSession  = "stop_session"
	TypeAnswer       = "answer"
	TypeListBanks    = "list_banks"

	// Server -> Client
	TypeMessage        = "message"
	TypeQuestion       = "question"
	TypeExchangeClosed = "exchange_closed"
	TypeSummary        = "summary"
	TypeBanks          = "banks"
	TypeError          = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed envelope.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = data
	return msg, nil
}

// Client Messages (incoming)

type StartSessionPayload struct {
	Subject        string `json:"subject,omitempty"` // empty selects root topics
	Topic          string `json:"topic"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type AnswerPayload struct {
	ExchangeID string `json:"exchange_id"`
	Option     *int   `json:"option"` // null means no selection
}

// Server Messages (outgoing)

type TextPayload struct {
	Text string `json:"text"`
}

type QuestionPayload struct {
	ExchangeID     string   `json:"exchange_id"`
	Number         int      `json:"number"`
	Total          int      `json:"total"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

type ExchangeClosedPayload struct {
	ExchangeID string `json:"exchange_id"`
}

type SummaryPayload struct {
	Subject        string   `json:"subject"`
	Topic          string   `json:"topic"`
	Total          int      `json:"total"`
	Correct        int      `json:"correct"`
	Wrong          int      `json:"wrong"`
	Missed         int      `json:"missed"`
	NotAttended    int      `json:"not_attended"`
	ElapsedSeconds int      `json:"elapsed_seconds"`
	CorrectPrompts []string `json:"correct_prompts"`
	WrongPrompts   []string `json:"wrong_prompts"`
	MissedPrompts  []string `json:"missed_prompts"`
	Stopped        bool     `json:"stopped"`
}

type Bank struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
}

type BanksPayload struct {
	Banks []Bank `json:"banks"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
