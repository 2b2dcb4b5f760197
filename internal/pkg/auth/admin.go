package auth

import "strings"

// AdminSet is the allow-list of administrator emails, lower-cased.
type AdminSet map[string]struct{}

// NewAdminSet builds the set once at startup.
func NewAdminSet(emails []string) AdminSet {
	set := make(AdminSet, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// Contains reports whether email belongs to an administrator
func (s AdminSet) Contains(email string) bool {
	if email == "" {
		return false
	}
	_, ok := s[strings.ToLower(strings.TrimSpace(email))]
	return ok
}
