package question

import (
	"strconv"
	"strings"
)

var letterKeys = map[string]int{"a": 0, "b": 1, "c": 2, "d": 3}

// Normalize turns a raw record into a playable question with its options in
// a fresh random order. It reports false for rows that cannot be played:
// a blank prompt or fewer than two non-empty options.
func Normalize(rec Record, shuffle func(n int, swap func(i, j int))) (Question, bool) {
	prompt := strings.TrimSpace(strings.ReplaceAll(rec.Prompt, `\n`, "\n"))
	if prompt == "" {
		return Question{}, false
	}

	raw := rec.Options
	if len(raw) > MaxOptions {
		raw = raw[:MaxOptions]
	}
	options := make([]string, 0, len(raw))
	for _, opt := range raw {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) < MinOptions {
		return Question{}, false
	}

	correctText := options[ResolveAnswerKey(rec.Answer, len(options))]
	shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	correct := 0
	for i, opt := range options {
		if opt == correctText {
			correct = i
			break
		}
	}

	return Question{
		Prompt:       prompt,
		Options:      options,
		CorrectIndex: correct,
	}, true
}

// ResolveAnswerKey maps an answer key onto an option index. Keys are either
// a 1-based number or a letter a-d; anything absent, unrecognized, or out of
// range selects the first option.
func ResolveAnswerKey(key string, optionCount int) int {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return 0
	}

	idx, ok := letterKeys[key]
	if !ok {
		n, err := strconv.Atoi(key)
		if err != nil {
			return 0
		}
		idx = n - 1
	}
	if idx < 0 || idx >= optionCount {
		return 0
	}
	return idx
}
