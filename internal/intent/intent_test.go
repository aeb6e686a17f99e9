package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Quit(t *testing.T) {
	for _, q := range []string{"quit", "please exit", "STOP", "Stop listening now", "exit."} {
		in := Classify(q)
		assert.Equal(t, KindQuit, in.Kind, "query %q", q)
	}
}

func TestClassify_OpenResource(t *testing.T) {
	in := Classify("open youtube")
	require.Equal(t, KindOpenResource, in.Kind)
	assert.Equal(t, "https://youtube.com", in.URL)
	assert.Equal(t, "YouTube", in.Resource)

	in = Classify("could you OPEN GOOGLE please")
	require.Equal(t, KindOpenResource, in.Kind)
	assert.Equal(t, "https://google.com", in.URL)
}

func TestClassify_QueryTime(t *testing.T) {
	assert.Equal(t, KindQueryTime, Classify("what time is it").Kind)
	assert.Equal(t, KindQueryTime, Classify("tell me the TIME").Kind)
}

func TestClassify_TimeRequiresWordBoundary(t *testing.T) {
	// "sometimes" and "timer" contain "time" but must not trigger the
	// time rule.
	assert.Equal(t, KindConverse, Classify("sometimes I wonder").Kind)
	assert.Equal(t, KindConverse, Classify("set a timer").Kind)
}

func TestClassify_KnowledgeLookup(t *testing.T) {
	tests := []struct {
		query string
		term  string
	}{
		{"wikipedia go programming language", "go programming language"},
		{"search python on wikipedia", "python"},
		{"wikipedia the moon", "the moon"},
	}
	for _, tt := range tests {
		in := Classify(tt.query)
		require.Equal(t, KindKnowledgeLookup, in.Kind, "query %q", tt.query)
		assert.Equal(t, tt.term, in.Term, "query %q", tt.query)
	}
}

func TestClassify_MailCheck(t *testing.T) {
	assert.Equal(t, KindMailCheck, Classify("check my email").Kind)
	assert.Equal(t, KindMailCheck, Classify("read my inbox").Kind)
	assert.Equal(t, KindMailCheck, Classify("check mail").Kind)
}

func TestClassify_MailSend(t *testing.T) {
	in := Classify("send an email to bob@example.com about lunch saying see you at noon")
	require.Equal(t, KindMailSend, in.Kind)
	assert.Equal(t, "bob@example.com", in.To)
	assert.Equal(t, "lunch", in.Subject)
	assert.Equal(t, "see you at noon", in.Body)
}

func TestClassify_MailSendPartialArgs(t *testing.T) {
	in := Classify("send email to bob@example.com")
	require.Equal(t, KindMailSend, in.Kind)
	assert.Equal(t, "bob@example.com", in.To)
	assert.Empty(t, in.Subject)
	assert.Empty(t, in.Body)

	// No parsable recipient still classifies as mail send.
	in = Classify("send an email")
	require.Equal(t, KindMailSend, in.Kind)
	assert.Empty(t, in.To)
}

func TestClassify_ConverseCatchAll(t *testing.T) {
	in := Classify("how are you today")
	require.Equal(t, KindConverse, in.Kind)
	assert.Equal(t, "how are you today", in.Text)
}

func TestClassify_RulePrecedence(t *testing.T) {
	// Quit outranks everything that follows it in the table.
	assert.Equal(t, KindQuit, Classify("stop opening youtube").Kind)
	// The specific open rules outrank the time rule.
	assert.Equal(t, KindOpenResource, Classify("open youtube one more time").Kind)
}

func TestClassify_Total(t *testing.T) {
	// Classification never fails, whatever comes in.
	for _, q := range []string{"", "   ", "????", "über alles", "🎉🎉🎉", "a\nb\tc"} {
		in := Classify(q)
		assert.NotNil(t, in)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	first := Classify("wikipedia go")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify("wikipedia go"))
	}
}
