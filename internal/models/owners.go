package models

import "strings"

// OwnerSeparator joins owner names in the stored owner_name column.
const OwnerSeparator = " / "

// ParseOwners splits a stored owner_name value into distinct, trimmed names.
// Duplicates are dropped case-insensitively, keeping the first spelling.
func ParseOwners(raw string) []string {
	return NormalizeOwners(strings.Split(raw, "/"))
}

// NormalizeOwners trims names, drops empty ones and removes duplicates.
func NormalizeOwners(names []string) []string {
	owners := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		owners = append(owners, name)
	}
	return owners
}

// JoinOwners renders owners in the stored owner_name format.
func JoinOwners(owners []string) string {
	return strings.Join(NormalizeOwners(owners), OwnerSeparator)
}

// HasOwner reports whether name is one of the task owners, ignoring case.
func (t Task) HasOwner(name string) bool {
	name = strings.TrimSpace(name)
	for _, owner := range t.Owners {
		if strings.EqualFold(owner, name) {
			return true
		}
	}
	return false
}
