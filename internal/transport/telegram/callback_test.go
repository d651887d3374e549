package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbackRoundTrip(t *testing.T) {
	codec := newCallbackCodec()
	tests := []struct {
		data string
		want callback
	}{
		{codec.encodeSubject("science"), callback{kind: callbackSubject, subject: "science"}},
		{codec.encodeTopic("science", "planets"), callback{kind: callbackTopic, subject: "science", topic: "planets"}},
		{codec.encodeTopic("", "general"), callback{kind: callbackTopic, topic: "general"}},
		{encodeTimer(45), callback{kind: callbackTimer, seconds: 45}},
		{codec.encodeRetest("", "general"), callback{kind: callbackRetest, topic: "general"}},
		{codec.encodeRetest("history", "rome"), callback{kind: callbackRetest, subject: "history", topic: "rome"}},
		{dataNew, callback{kind: callbackNew}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, codec.parse(tt.data), tt.data)
	}
}

func TestCallbackRejectsGarbage(t *testing.T) {
	codec := newCallbackCodec()
	for _, data := range []string{"", "subj:", "topic:", "topic:science|", "timer:abc", "timer:-5", "bogus", "retest:#unknown", "subj:#nope"} {
		assert.Equal(t, callbackUnknown, codec.parse(data).kind, data)
	}
}

func TestEncodeRootUsesMarker(t *testing.T) {
	codec := newCallbackCodec()
	assert.Equal(t, "topic:@root|general", codec.encodeTopic("", "general"))
	assert.Equal(t, "retest:@root|general", codec.encodeRetest("", "general"))
}

func TestLongLabelsStayWithinCallbackLimit(t *testing.T) {
	codec := newCallbackCodec()
	subject := "advanced_" + strings.Repeat("organic_chemistry_", 3)
	topic := "stereochemistry_and_reaction_mechanisms_part_two"

	for _, tt := range []struct {
		data string
		want callback
	}{
		{codec.encodeSubject(subject + subject), callback{kind: callbackSubject, subject: subject + subject}},
		{codec.encodeTopic(subject, topic), callback{kind: callbackTopic, subject: subject, topic: topic}},
		{codec.encodeRetest(subject, topic), callback{kind: callbackRetest, subject: subject, topic: topic}},
	} {
		assert.LessOrEqual(t, len(tt.data), maxCallbackData, tt.data)
		assert.Contains(t, tt.data, refMarker)
		assert.Equal(t, tt.want, codec.parse(tt.data))
	}

	assert.Equal(t, codec.encodeRetest(subject, topic), codec.encodeRetest(subject, topic), "references are stable")
	assert.Equal(t, callbackUnknown, newCallbackCodec().parse(codec.encodeRetest(subject, topic)).kind)
}

func TestLabelStartingWithMarkerIsReferenced(t *testing.T) {
	codec := newCallbackCodec()
	data := codec.encodeSubject("#hashtags")
	assert.NotEqual(t, "subj:#hashtags", data)
	assert.Equal(t, callback{kind: callbackSubject, subject: "#hashtags"}, codec.parse(data))
}
