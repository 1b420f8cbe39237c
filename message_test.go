package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageRespondDeliversToCaller(t *testing.T) {
	msg, responder := newCallMessage("ping")

	msg.Respond("pong")

	v := <-responder
	assert.Equal(t, "pong", v)
}

func TestMessageRespondOnlyFirstWins(t *testing.T) {
	msg, responder := newCallMessage("ping")

	msg.Respond("first")
	msg.Respond("second")

	v := <-responder
	assert.Equal(t, "first", v)
}

func TestMessageCloseIfUnansweredClosesChannel(t *testing.T) {
	msg, responder := newCallMessage("ping")

	msg.closeIfUnanswered()

	v, ok := <-responder
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestMessageCloseIfUnansweredNoopAfterRespond(t *testing.T) {
	msg, responder := newCallMessage("ping")

	msg.Respond("answered")
	msg.closeIfUnanswered()

	v, ok := <-responder
	assert.True(t, ok)
	assert.Equal(t, "answered", v)
}

func TestMessageRespondNoopOnFireAndForget(t *testing.T) {
	msg := newFireAndForgetMessage("ping")
	assert.False(t, msg.IsCall())

	assert.NotPanics(t, func() {
		msg.Respond("ignored")
		msg.closeIfUnanswered()
	})
}

type cloneableGreeting struct {
	text string
}

func (g cloneableGreeting) Clone() any {
	return cloneableGreeting{text: g.text}
}

func TestCloneForFanOutUsesCloner(t *testing.T) {
	original := cloneableGreeting{text: "hi"}
	cloned := cloneForFanOut(original)

	assert.Equal(t, original, cloned)
}

func TestCloneForFanOutPassesThroughPlainValues(t *testing.T) {
	cloned := cloneForFanOut(42)
	assert.Equal(t, 42, cloned)
}
