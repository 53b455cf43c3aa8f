package privacy

import (
	"strings"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits
// Example: "+1234567890" -> "+******7890"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 {
			return phone
		}
		if len(phone) <= 5 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-5) + phone[len(phone)-4:]
	}

	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskEmail masks the local part of an email address
// Example: "dilani.perera@example.com" -> "d****@example.com"
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return maskString(email, 0)
	}

	local := email[:at]
	domain := email[at:]
	if len(local) == 1 {
		return "*" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + domain
}

// MaskCustomerRef masks a customer or session reference
// Example: "session-1a2b3c4d" -> "****3c4d"
func MaskCustomerRef(ref string) string {
	if ref == "" {
		return ""
	}
	return maskString(ref, 4)
}

// MaskCustomerName keeps the first letter of each word for log readability
// Example: "Dilani Perera" -> "D***** P*****"
func MaskCustomerName(name string) string {
	if name == "" {
		return ""
	}

	words := strings.Fields(name)
	for i, w := range words {
		if len(w) > 1 {
			words[i] = w[:1] + strings.Repeat("*", len(w)-1)
		}
	}
	return strings.Join(words, " ")
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{})
	for k, v := range fields {
		switch k {
		case "phone", "phone_number", "customer_phone":
			if s, ok := v.(string); ok {
				masked[k] = MaskPhoneNumber(s)
			} else {
				masked[k] = v
			}
		case "email", "customer_email":
			if s, ok := v.(string); ok {
				masked[k] = MaskEmail(s)
			} else {
				masked[k] = v
			}
		case "customer_ref", "customerRef", "sender_ref", "senderRef":
			if s, ok := v.(string); ok {
				masked[k] = MaskCustomerRef(s)
			} else {
				masked[k] = v
			}
		case "customer_name", "customerName":
			if s, ok := v.(string); ok {
				masked[k] = MaskCustomerName(s)
			} else {
				masked[k] = v
			}
		default:
			masked[k] = v
		}
	}

	return masked
}
