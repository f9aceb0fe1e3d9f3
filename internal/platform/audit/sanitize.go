package audit

// Keys whose values never reach the audit trail. Identity fields are listed
// alongside credentials because audit rows are stored in clear while the
// record columns they describe are encrypted.
var sensitiveKeys = map[string]struct{}{
	"password":    {},
	"token":       {},
	"name":        {},
	"given_name":  {},
	"external_id": {},
	"dob":         {},
	"sex":         {},
	"email":       {},
}

const redacted = "[REDACTED]"

// Sanitize returns a deep copy of v with sensitive map keys replaced by a
// redaction marker, descending through nested maps and slices. Scalars and
// unknown types pass through unchanged.
func Sanitize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if _, sensitive := sensitiveKeys[k]; sensitive {
				out[k] = redacted
				continue
			}
			out[k] = Sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item)
		}
		return out
	default:
		return v
	}
}
