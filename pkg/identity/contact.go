// Package identity consolidates contact-like records from heterogeneous
// sources into one canonical set before they are allowed to produce
// bindings. PII fields on a Contact exist only in transit toward the CRM
// sink; they never reach the binding store.
package identity

import "strings"

// SourceLinkedIn is the authoritative source tag. When a merge combines an
// authoritative record with a non-authoritative one, the survivor is
// promoted to this tag.
const SourceLinkedIn = "linkedin"

// Contact is one raw subject record from an ingestion source.
type Contact struct {
	Name       string // display name
	PetName    string // canonical slug, see PetName()
	Email      string
	Phone      string
	Company    string
	Title      string
	ProfileURL string // external profile, e.g. a linkedin.com URL
	Source     string // source tag: "linkedin", "google", ...
}

// PetName derives the canonical slug from name parts: lowercased,
// stripped of everything but letters and hyphens, hyphen-joined.
// Returns "" when nothing survives the stripping.
func PetName(first, last string) string {
	first = stripNonAlpha(strings.ToLower(strings.TrimSpace(first)))
	last = stripNonAlpha(strings.ToLower(strings.TrimSpace(last)))
	if first != "" && last != "" {
		return first + "-" + last
	}
	if first != "" {
		return first
	}
	return last
}

// SlugFromEmail derives a fallback slug from an email local part,
// keeping lowercase letters, digits, and hyphens.
func SlugFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		local = email
	}
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FullName joins first and last names, tolerating either being empty.
func FullName(first, last string) string {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first != "" && last != "" {
		return first + " " + last
	}
	if first != "" {
		return first
	}
	return last
}

func stripNonAlpha(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
