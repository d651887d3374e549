package question

import "fmt"

// Option count bounds for a playable question.
const (
	MinOptions = 2
	MaxOptions = 4
)

// Question is a validated, shuffled multiple-choice question ready to be
// presented. CorrectIndex always points into Options.
type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// Record is one raw bank row as read from a source, before validation.
type Record struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

// BankID names a question bank. An empty Subject addresses a topic that
// lives at the root of the bank directory.
type BankID struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
}

func (b BankID) String() string {
	if b.Subject == "" {
		return b.Topic
	}
	return fmt.Sprintf("%s/%s", b.Subject, b.Topic)
}
