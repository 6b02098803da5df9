package identity

import "strings"

// Dedup consolidates raw contacts into a canonical list, preserving
// first-seen order. Matching is by lowercase email first, then by pet name
// for records without an email.
//
// On an email match the incoming record fills any empty profile URL,
// company, title, or phone on the survivor and is discarded; if the
// incoming record comes from the authoritative source and the survivor does
// not, the survivor's source tag is promoted. On a pet-name match the same
// fill applies except for phone, which is only merged on the email path.
// That asymmetry matches the historical merge rule and is preserved on
// purpose; see the tests that pin it.
func Dedup(contacts []Contact) []Contact {
	byEmail := make(map[string]*Contact)
	bySlug := make(map[string]*Contact)
	deduped := make([]*Contact, 0, len(contacts))

	for i := range contacts {
		c := contacts[i]
		email := strings.ToLower(c.Email)

		if email != "" {
			if existing, ok := byEmail[email]; ok {
				mergeInto(existing, &c, true)
				continue
			}
		} else if c.PetName != "" {
			if existing, ok := bySlug[c.PetName]; ok {
				mergeInto(existing, &c, false)
				continue
			}
		}

		keep := &c
		deduped = append(deduped, keep)
		if email != "" {
			byEmail[email] = keep
		}
		if c.PetName != "" {
			bySlug[c.PetName] = keep
		}
	}

	out := make([]Contact, len(deduped))
	for i, c := range deduped {
		out[i] = *c
	}
	return out
}

// mergeInto fills empty fields on existing from incoming. Phone fill and
// source promotion happen only on the email-match path.
func mergeInto(existing, incoming *Contact, emailMatch bool) {
	if existing.ProfileURL == "" && incoming.ProfileURL != "" {
		existing.ProfileURL = incoming.ProfileURL
	}
	if existing.Company == "" && incoming.Company != "" {
		existing.Company = incoming.Company
	}
	if existing.Title == "" && incoming.Title != "" {
		existing.Title = incoming.Title
	}
	if emailMatch {
		if existing.Phone == "" && incoming.Phone != "" {
			existing.Phone = incoming.Phone
		}
		if incoming.Source == SourceLinkedIn && existing.Source != SourceLinkedIn {
			existing.Source = SourceLinkedIn
		}
	}
}
