package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// RoleSuperadmin is the role of the built-in bypass identity.
const RoleSuperadmin = 1

// SuperadminDocument is the document of the built-in bypass identity. No
// provider persona can carry it, documents are numeric.
const SuperadminDocument = "SUPERADMIN"

// RoleSet is an allow-list of role ids. A nil RoleSet means any
// authenticated caller.
type RoleSet map[int]struct{}

func NewRoleSet(ids ...int) RoleSet {
	s := make(RoleSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// ParseRoleSet reads a comma separated list such as "3,4". An empty string
// yields nil (no restriction).
func ParseRoleSet(raw string) (RoleSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	s := RoleSet{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid role id %q: %w", part, err)
		}
		s[id] = struct{}{}
	}
	return s, nil
}

func (s RoleSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in ascending order.
func (s RoleSet) IDs() []int {
	out := make([]int, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s RoleSet) String() string {
	if s == nil {
		return "any"
	}
	parts := make([]string, 0, len(s))
	for _, id := range s.IDs() {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}
