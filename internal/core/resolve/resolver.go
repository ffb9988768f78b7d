package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ning0612/dirdedup/internal/core/table"
	"github.com/Ning0612/dirdedup/internal/domain"
)

// Policy decides which file of a duplicate group survives
type Policy string

const (
	// KeepFirst keeps the lexicographically smallest path (byte order)
	KeepFirst Policy = "first"
	// KeepLast keeps the lexicographically largest path
	KeepLast Policy = "last"
)

// IsValid checks if the policy is a known value
func (p Policy) IsValid() bool {
	switch p {
	case KeepFirst, KeepLast:
		return true
	}
	return false
}

// ParsePolicy parses a policy name; empty means KeepFirst
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return KeepFirst, nil
	}
	if !p.IsValid() {
		return "", fmt.Errorf("unknown keep policy: %s", s)
	}
	return p, nil
}

// Resolution is the outcome of resolving a frozen table
type Resolution struct {
	// Groups ordered by survivor path
	Groups []domain.DuplicateGroup

	// Candidates lists every file to delete, in group order
	Candidates []domain.FileEntry
}

// Resolver turns fingerprint buckets into duplicate groups
type Resolver interface {
	Resolve(buckets []table.Bucket) Resolution
}

// DefaultResolver orders each bucket by path and applies its Policy.
// The order is fixed here rather than at insert time, so the result does not
// depend on which worker hashed which file.
type DefaultResolver struct {
	Policy Policy
}

// NewDefaultResolver creates a resolver; an invalid policy falls back to KeepFirst
func NewDefaultResolver(policy Policy) *DefaultResolver {
	if !policy.IsValid() {
		policy = KeepFirst
	}
	return &DefaultResolver{Policy: policy}
}

// Resolve implements the Resolver interface
func (r *DefaultResolver) Resolve(buckets []table.Bucket) Resolution {
	var res Resolution

	for _, b := range buckets {
		if len(b.Entries) < 2 {
			continue
		}

		ordered := make([]domain.FileEntry, len(b.Entries))
		copy(ordered, b.Entries)
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].Path < ordered[j].Path
		})
		if r.Policy == KeepLast {
			reverse(ordered)
		}

		res.Groups = append(res.Groups, domain.DuplicateGroup{
			Key:        b.Key,
			Survivor:   ordered[0],
			Duplicates: ordered[1:],
		})
	}

	sort.Slice(res.Groups, func(i, j int) bool {
		return res.Groups[i].Survivor.Path < res.Groups[j].Survivor.Path
	})

	for _, g := range res.Groups {
		res.Candidates = append(res.Candidates, g.Duplicates...)
	}

	return res
}

func reverse(entries []domain.FileEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
