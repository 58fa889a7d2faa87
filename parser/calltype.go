package parser

import (
	"strings"
	"unicode"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

// ClassifyCallType maps free-form call type text onto the four record kinds.
// The checks run from the most specific wording to the loosest so that "in"
// inside "incoming" or "out" inside "outgoing" never decides on its own.
// Text nothing recognises is an outgoing call; an SMS with no direction is a
// received SMS.
func ClassifyCallType(s string) cdr.CallType {
	s = strings.ToLower(strings.TrimSpace(s))
	toks := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })

	// 1) sms / message
	if has(s, "sms", "message", "msg") {
		switch {
		case has(s, "outgoing", "sent", "out"):
			return cdr.SMSSent
		case has(s, "incoming", "received", "in"):
			return cdr.SMSReceived
		}
		return cdr.SMSReceived
	}

	// 2) full direction words
	switch {
	case has(s, "outgoing", "sent"):
		return cdr.CallOutgoing
	case has(s, "incoming", "received"):
		return cdr.CallIncoming
	}

	// 3) exact short tokens
	switch s {
	case "incoming", "inc":
		return cdr.CallIncoming
	case "outgoing", "out":
		return cdr.CallOutgoing
	}

	// 4) out/in as a token, prefix or suffix (CALL_OUT, A_IN, OUTCALL, ...)
	switch {
	case tok(toks, "out") || strings.HasPrefix(s, "out") || strings.HasSuffix(s, "out"):
		return cdr.CallOutgoing
	case tok(toks, "in") || strings.HasPrefix(s, "in") || strings.HasSuffix(s, "in"):
		return cdr.CallIncoming
	}

	// 5) MO/MT switch convention, then bare voice
	switch {
	case tok(toks, "mt", "mtc") || has(s, "terminated", "terminating"):
		return cdr.CallIncoming
	case tok(toks, "mo", "moc") || has(s, "originated", "originating"):
		return cdr.CallOutgoing
	case has(s, "call", "voice"):
		return cdr.CallOutgoing
	}

	// 6) unclassifiable
	return cdr.CallOutgoing
}

func has(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func tok(toks []string, want ...string) bool {
	for _, t := range toks {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}
