// Package reply renders the message posted in response to matched terms.
package reply

import "strings"

// Prefix opens every reply.
const Prefix = "Please do not use "

// Suffix is appended verbatim after the term list.
const Suffix = ". It is derogatory and a slur. Please use 'trans woman' instead.\n\n_____\n\n This is a bot."

// Format renders the reply for terms, preserving their order.
//
//	1 term:  "a"
//	2 terms: "a or b"
//	3+:      "a, b, or c"
//
// Calling Format with no terms is a programming error: an empty match means
// no action is taken at all.
func Format(terms []string) string {
	if len(terms) == 0 {
		panic("reply: Format called with no terms")
	}

	var b strings.Builder
	b.WriteString(Prefix)
	switch len(terms) {
	case 1:
		b.WriteString(terms[0])
	case 2:
		b.WriteString(terms[0])
		b.WriteString(" or ")
		b.WriteString(terms[1])
	default:
		last := len(terms) - 1
		for _, t := range terms[:last] {
			b.WriteString(t)
			b.WriteString(", ")
		}
		b.WriteString("or ")
		b.WriteString(terms[last])
	}
	b.WriteString(Suffix)
	return b.String()
}
