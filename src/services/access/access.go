// Package access decides who may see or answer a form.
package access

import (
	"strings"

	"Backend-PollSurvey/src/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CanView: public forms are open to everyone. Private forms are open to the
// creator and to emails on the allowlist (case-insensitive).
func CanView(private bool, creator primitive.ObjectID, allowed []string, viewer models.Identity) bool {
	if !private {
		return true
	}
	if !viewer.UserID.IsZero() && viewer.UserID == creator {
		return true
	}
	return EmailAllowed(allowed, viewer.Email)
}

func EmailAllowed(allowed []string, email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	for _, a := range allowed {
		if NormalizeEmail(a) == email {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmails lower-cases and de-duplicates, keeping order.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = NormalizeEmail(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// IsOwner ใช้ก่อน update/toggle/delete
func IsOwner(creator primitive.ObjectID, caller models.Identity) bool {
	return !caller.UserID.IsZero() && caller.UserID == creator
}
