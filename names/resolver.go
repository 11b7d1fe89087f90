// Package names proposes connection string names that do not collide with
// the ones already declared in an application config file.
package names

import "strconv"

// NameLister exposes the connection string names declared by a config document.
type NameLister interface {
	ConnectionStringNames() []string
}

// ResolveUniqueName returns candidate if no connection string in doc uses it,
// otherwise candidate followed by the smallest positive integer that makes it
// unique. A nil doc, or one declaring no names, is treated as empty.
// Names are compared case-sensitively.
func ResolveUniqueName(candidate string, doc NameLister) string {
	if doc == nil {
		return candidate
	}
	existing := doc.ConnectionStringNames()
	if len(existing) == 0 {
		return candidate
	}

	set := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		set[name] = struct{}{}
	}
	return Uniquify(candidate, set)
}

// Uniquify probes candidate, candidate1, candidate2, ... and returns the first
// one missing from existing. It terminates because existing is finite.
func Uniquify(candidate string, existing map[string]struct{}) string {
	if _, taken := existing[candidate]; !taken {
		return candidate
	}
	for i := 1; ; i++ {
		try := candidate + strconv.Itoa(i)
		if _, taken := existing[try]; !taken {
			return try
		}
	}
}

// Names adapts a plain slice to NameLister.
type Names []string

// ConnectionStringNames implements NameLister.
func (n Names) ConnectionStringNames() []string { return n }
