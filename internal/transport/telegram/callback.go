package telegram

import (
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Callback data prefixes carried by inline keyboard buttons.
const (
	prefixSubject = "subj:"
	prefixTopic   = "topic:"
	prefixTimer   = "timer:"
	prefixRetest  = "retest:"
	dataNew       = "new"

	rootSubject = "@root"
)

type callbackKind int

const (
	callbackUnknown callbackKind = iota
	callbackSubject
	callbackTopic
	callbackTimer
	callbackRetest
	callbackNew
)

type callback struct {
	kind    callbackKind
	subject string
	topic   string
	seconds int
}

// Telegram rejects buttons whose callback data exceeds 64 bytes.
const maxCallbackData = 64

// refMarker prefixes values replaced by a server-side reference.
const refMarker = "#"

// callbackCodec encodes inline-button data. Values that would push the data
// past the Telegram limit are swapped for a short hash kept in memory; the
// table only grows with distinct long bank labels.
type callbackCodec struct {
	mu   sync.RWMutex
	refs map[string]string
}

func newCallbackCodec() *callbackCodec {
	return &callbackCodec{refs: make(map[string]string)}
}

func (c *callbackCodec) pack(prefix, value string) string {
	if data := prefix + value; len(data) <= maxCallbackData && !strings.HasPrefix(value, refMarker) {
		return data
	}
	key := refMarker + strconv.FormatUint(xxhash.Sum64String(value), 36)
	c.mu.Lock()
	c.refs[key] = value
	c.mu.Unlock()
	return prefix + key
}

func (c *callbackCodec) unpack(value string) (string, bool) {
	if !strings.HasPrefix(value, refMarker) {
		return value, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.refs[value]
	return v, ok
}

func (c *callbackCodec) encodeSubject(subject string) string {
	return c.pack(prefixSubject, subject)
}

func (c *callbackCodec) encodeTopic(subject, topic string) string {
	return c.pack(prefixTopic, bankRef(subject, topic))
}

func (c *callbackCodec) encodeRetest(subject, topic string) string {
	return c.pack(prefixRetest, bankRef(subject, topic))
}

func encodeTimer(secs int) string {
	return prefixTimer + strconv.Itoa(secs)
}

func bankRef(subject, topic string) string {
	if subject == "" {
		subject = rootSubject
	}
	return subject + "|" + topic
}

func parseBankRef(ref string) (subject, topic string, ok bool) {
	subject, topic, found := strings.Cut(ref, "|")
	if !found {
		return "", ref, ref != ""
	}
	if subject == rootSubject {
		subject = ""
	}
	return subject, topic, topic != ""
}

// parse decodes callback data. References unknown to this process, such as
// buttons sent before a restart, decode as callbackUnknown.
func (c *callbackCodec) parse(data string) callback {
	switch {
	case data == dataNew:
		return callback{kind: callbackNew}
	case strings.HasPrefix(data, prefixSubject):
		subject, ok := c.unpack(strings.TrimSpace(strings.TrimPrefix(data, prefixSubject)))
		if !ok || subject == "" {
			return callback{}
		}
		return callback{kind: callbackSubject, subject: subject}
	case strings.HasPrefix(data, prefixTopic):
		subject, topic, ok := c.parseBankRef(strings.TrimPrefix(data, prefixTopic))
		if !ok {
			return callback{}
		}
		return callback{kind: callbackTopic, subject: subject, topic: topic}
	case strings.HasPrefix(data, prefixTimer):
		secs, err := strconv.Atoi(strings.TrimPrefix(data, prefixTimer))
		if err != nil || secs <= 0 {
			return callback{}
		}
		return callback{kind: callbackTimer, seconds: secs}
	case strings.HasPrefix(data, prefixRetest):
		subject, topic, ok := c.parseBankRef(strings.TrimPrefix(data, prefixRetest))
		if !ok {
			return callback{}
		}
		return callback{kind: callbackRetest, subject: subject, topic: topic}
	}
	return callback{}
}

func (c *callbackCodec) parseBankRef(ref string) (subject, topic string, ok bool) {
	ref, ok = c.unpack(ref)
	if !ok {
		return "", "", false
	}
	return parseBankRef(ref)
}
