// Package intent classifies recognized utterances into a closed set of
// intents using an ordered rule table. Classification is deterministic
// and total: every input maps to exactly one intent, with Converse as
// the catch-all.
package intent

import (
	"regexp"
	"strings"
)

type Kind int

const (
	KindQuit Kind = iota
	KindOpenResource
	KindQueryTime
	KindKnowledgeLookup
	KindMailCheck
	KindMailSend
	KindConverse
)

func (k Kind) String() string {
	switch k {
	case KindQuit:
		return "quit"
	case KindOpenResource:
		return "open_resource"
	case KindQueryTime:
		return "query_time"
	case KindKnowledgeLookup:
		return "knowledge_lookup"
	case KindMailCheck:
		return "mail_check"
	case KindMailSend:
		return "mail_send"
	case KindConverse:
		return "converse"
	}
	return "unknown"
}

// Intent is the classified meaning of one utterance. Only the fields
// relevant to the Kind are populated.
type Intent struct {
	Kind Kind

	// KindOpenResource
	URL      string
	Resource string

	// KindKnowledgeLookup
	Term string

	// KindMailSend
	To      string
	Subject string
	Body    string

	// KindConverse: the original utterance, unmodified.
	Text string
}

// rule is one entry in the classification table. Rules are evaluated
// in order and the first match wins, so more specific patterns must be
// listed before broader ones.
type rule struct {
	name  string
	re    *regexp.Regexp
	build func(q string) Intent
}

var (
	mailSendArgsRe  = regexp.MustCompile(`to (\S+)(?: about (.+?))?(?: saying (.+))?$`)
	wikipediaTermRe = regexp.MustCompile(`\bwikipedia\b`)
)

// wikipediaTerm strips the trigger word and common lead-ins so that
// "search go on wikipedia" and "wikipedia the moon" both yield a bare
// lookup term.
func wikipediaTerm(q string) string {
	term := strings.TrimSpace(wikipediaTermRe.ReplaceAllString(q, ""))
	term = strings.TrimSpace(strings.TrimPrefix(term, "search "))
	term = strings.TrimSpace(strings.TrimSuffix(term, " on"))
	term = strings.TrimSpace(strings.TrimPrefix(term, "for "))
	return term
}

var rules = []rule{
	{
		name: "quit",
		re:   regexp.MustCompile(`\b(quit|exit|stop)\b`),
		build: func(q string) Intent {
			return Intent{Kind: KindQuit}
		},
	},
	{
		name: "open-youtube",
		re:   regexp.MustCompile(`\bopen youtube\b`),
		build: func(q string) Intent {
			return Intent{Kind: KindOpenResource, URL: "https://youtube.com", Resource: "YouTube"}
		},
	},
	{
		name: "open-google",
		re:   regexp.MustCompile(`\bopen google\b`),
		build: func(q string) Intent {
			return Intent{Kind: KindOpenResource, URL: "https://google.com", Resource: "Google"}
		},
	},
	{
		name: "wikipedia",
		re:   regexp.MustCompile(`\bwikipedia\b`),
		build: func(q string) Intent {
			return Intent{Kind: KindKnowledgeLookup, Term: wikipediaTerm(q)}
		},
	},
	{
		name: "mail-send",
		re:   regexp.MustCompile(`\bsend (?:an? )?(?:e-?mail|mail)\b`),
		build: func(q string) Intent {
			in := Intent{Kind: KindMailSend}
			if m := mailSendArgsRe.FindStringSubmatch(q); m != nil {
				in.To = m[1]
				in.Subject = strings.TrimSpace(m[2])
				in.Body = strings.TrimSpace(m[3])
			}
			return in
		},
	},
	{
		name: "mail-check",
		re:   regexp.MustCompile(`\b(?:check|read)\b.*\b(?:e-?mail|mail|inbox)\b`),
		build: func(q string) Intent {
			return Intent{Kind: KindMailCheck}
		},
	},
	{
		// Word-boundary match so "sometimes" and "timer" do not trip it.
		name: "time",
		re:   regexp.MustCompile(`\btime\b`),
		build: func(q string) Intent {
			return Intent{Kind: KindQueryTime}
		},
	},
}

// Classify maps an utterance to its intent. Matching is
// case-insensitive and rule order is part of the contract. Rejecting
// empty or malformed input is the caller's job; this function never
// fails and falls through to Converse.
func Classify(text string) Intent {
	q := strings.ToLower(strings.TrimSpace(text))
	for _, r := range rules {
		if r.re.MatchString(q) {
			return r.build(q)
		}
	}
	return Intent{Kind: KindConverse, Text: strings.TrimSpace(text)}
}
