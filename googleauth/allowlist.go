package googleauth

import (
	"errors"
	"sort"
	"strings"
)

// ErrEmptyAllowList is returned when no permitted email is configured
var ErrEmptyAllowList = errors.New("allow-list must contain at least one email")

// AllowList is an immutable set of permitted email addresses.
// Matching is exact and case-sensitive.
type AllowList struct {
	emails map[string]struct{}
}

// NewAllowList builds an AllowList from emails, trimming whitespace and
// dropping empty entries
func NewAllowList(emails []string) (*AllowList, error) {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		set[e] = struct{}{}
	}
	if len(set) == 0 {
		return nil, ErrEmptyAllowList
	}
	return &AllowList{emails: set}, nil
}

// ParseAllowList builds an AllowList from a comma-separated string
func ParseAllowList(csv string) (*AllowList, error) {
	return NewAllowList(strings.Split(csv, ","))
}

// Contains reports whether email is permitted
func (a *AllowList) Contains(email string) bool {
	if a == nil {
		return false
	}
	_, ok := a.emails[email]
	return ok
}

// Len returns the number of permitted emails
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.emails)
}

// Emails returns the permitted emails in sorted order
func (a *AllowList) Emails() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.emails))
	for e := range a.emails {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
