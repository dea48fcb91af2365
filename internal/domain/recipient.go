package domain

// Recipient is one resolved delivery target for a campaign. It is computed
// by the audience resolver and never persisted. Every field is optional;
// a recipient with no usable contact method for any selected channel is
// counted as skipped, not as an error.
type Recipient struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// HasEmail reports whether the recipient can be reached over email.
func (r Recipient) HasEmail() bool { return r.Email != "" }

// HasPhone reports whether the recipient can be reached over chat.
func (r Recipient) HasPhone() bool { return r.Phone != "" }

// Reachable reports whether the recipient has a usable contact method
// for at least one of the given channels.
func (r Recipient) Reachable(channels Channels) bool {
	if channels.Has(ChannelEmail) && r.HasEmail() {
		return true
	}
	if channels.Has(ChannelChat) && r.HasPhone() {
		return true
	}
	return false
}
