package models

import "strings"

// Usage modes a visitor can pick on the contact form
const (
	UsageBusiness = "business"
	UsagePersonal = "personal"
)

// ContactForm represents the data entered on the site's contact form
type ContactForm struct {
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Company     string `json:"company" validate:"max=200"`
	Phone       string `json:"phone" validate:"max=40"`
	Country     string `json:"country" validate:"max=100"`
	Industry    string `json:"industry" validate:"max=100"`
	CompanySize string `json:"company_size" validate:"max=50"`
	Message     string `json:"message" validate:"required,max=5000"`
	UsageType   string `json:"usage_type" validate:"omitempty,oneof=business personal"`
}

// Payload is the flat field map sent to every destination
type Payload map[string]string

// Payload converts the form into a field map, trimming whitespace.
// Empty optional fields are kept so every destination sees the same keys.
func (f *ContactForm) Payload() Payload {
	usage := strings.TrimSpace(f.UsageType)
	if usage == "" {
		usage = UsageBusiness
	}
	return Payload{
		"name":         strings.TrimSpace(f.Name),
		"email":        strings.TrimSpace(f.Email),
		"company":      strings.TrimSpace(f.Company),
		"phone":        strings.TrimSpace(f.Phone),
		"country":      strings.TrimSpace(f.Country),
		"industry":     strings.TrimSpace(f.Industry),
		"company_size": strings.TrimSpace(f.CompanySize),
		"message":      strings.TrimSpace(f.Message),
		"usage_type":   usage,
	}
}

// Reset clears everything the visitor typed. The usage mode is a toggle, not input, so it survives.
func (f *ContactForm) Reset() {
	usage := f.UsageType
	*f = ContactForm{UsageType: usage}
}

// Clone returns a copy of the payload that can be modified independently
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
