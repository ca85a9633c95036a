package contactform

import "strings"

// FieldErrors maps a wire field name to its validation message.
type FieldErrors map[string]string

// Error joins the messages in display order.
func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, f := range Fields {
		if m, ok := fe[f]; ok {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, "; ")
}

// First returns the message of the first failing field in display order.
func (fe FieldErrors) First() string {
	for _, f := range Fields {
		if m, ok := fe[f]; ok {
			return m
		}
	}
	return ""
}
