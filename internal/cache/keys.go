package cache

import (
	"strings"
	"time"
)

// Namespace identifies a cache tier. Each namespace carries a fixed TTL;
// lifetimes are constants, never computed per entry.
type Namespace string

const (
	// NamespaceFileContent caches fetched file contents (TTL 1h)
	NamespaceFileContent Namespace = "file"
	// NamespaceRepoMetadata caches repository metadata (TTL 15m)
	NamespaceRepoMetadata Namespace = "repo"
	// NamespaceProfileMetadata caches owner profile metadata (TTL 30m)
	NamespaceProfileMetadata Namespace = "profile"
	// NamespaceFileTree caches repository file listings (TTL 15m)
	NamespaceFileTree Namespace = "tree"
	// NamespaceSelection caches query -> file-selection mappings (TTL 24h)
	NamespaceSelection Namespace = "selection"
	// NamespaceAnswer caches full query answers (TTL 24h)
	NamespaceAnswer Namespace = "answer"
	// NamespaceScan caches full scan results (TTL 24h)
	NamespaceScan Namespace = "scan"
)

var ttlTable = map[Namespace]time.Duration{
	NamespaceFileContent:     3600 * time.Second,
	NamespaceRepoMetadata:    900 * time.Second,
	NamespaceProfileMetadata: 1800 * time.Second,
	NamespaceFileTree:        900 * time.Second,
	NamespaceSelection:       86400 * time.Second,
	NamespaceAnswer:          86400 * time.Second,
	NamespaceScan:            86400 * time.Second,
}

// TTL returns the fixed lifetime for a namespace. Unknown namespaces get
// the file-tree lifetime as a conservative default.
func TTL(ns Namespace) time.Duration {
	if ttl, ok := ttlTable[ns]; ok {
		return ttl
	}
	return ttlTable[NamespaceFileTree]
}

// Scope identifies the repository a request is about.
type Scope struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// String returns the colon-joined scope tuple used inside cache keys.
func (s Scope) String() string {
	return s.Owner + ":" + s.Repo
}

// Key builds a cache key as {namespace}:{owner}:{repo}:{discriminator}.
// Identical logical requests always produce the identical key.
func Key(ns Namespace, scope Scope, discriminator string) string {
	return string(ns) + ":" + scope.String() + ":" + discriminator
}

// NormalizeQuery canonicalizes a free-form query for use as a key
// discriminator: trimmed, lowercased, inner whitespace collapsed.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
