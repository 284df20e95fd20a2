// File path: internal/sync/merge.go
package sync

import "strings"

// MergeRoles unions incoming roles into the existing pipe-delimited
// role string. Existing order is preserved, new roles append at the
// end, duplicates and empty strings drop out.
func MergeRoles(existing string, incoming ...string) []string {
	seen := make(map[string]struct{})
	var merged []string
	add := func(role string) {
		role = strings.TrimSpace(role)
		if role == "" {
			return
		}
		if _, ok := seen[role]; ok {
			return
		}
		seen[role] = struct{}{}
		merged = append(merged, role)
	}
	for _, role := range strings.Split(existing, "|") {
		add(role)
	}
	for _, group := range incoming {
		for _, role := range strings.Split(group, "|") {
			add(role)
		}
	}
	return merged
}

// JoinRoles serializes a role set back to the pipe-delimited wire form.
func JoinRoles(roles []string) string {
	return strings.Join(roles, "|")
}
