package cache

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// KeyPrefix namespaces every entry written by this process
const KeyPrefix = "firebook:"

// Namespace separates entries of different capabilities so that they can
// never collide or be invalidated together.
type Namespace string

const (
	NamespaceMetadata    Namespace = "meta"
	NamespaceEmbedding   Namespace = "embed"
	NamespaceTags        Namespace = "tags"
	NamespaceDescription Namespace = "desc"
	NamespaceSimilar     Namespace = "similar"
)

// TTL returns the default lifetime of entries in the namespace
func (n Namespace) TTL() time.Duration {
	switch n {
	case NamespaceMetadata, NamespaceTags, NamespaceDescription:
		return 24 * time.Hour
	case NamespaceEmbedding:
		return 7 * 24 * time.Hour
	case NamespaceSimilar:
		return time.Hour
	default:
		return time.Hour
	}
}

// Key builds a namespaced key from a stable hash of the trimmed parts.
func Key(ns Namespace, parts ...string) string {
	h := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.WriteString("\x00")
		}
		_, _ = h.WriteString(strings.TrimSpace(p))
	}
	return fmt.Sprintf("%s%s:%016x", KeyPrefix, ns, h.Sum64())
}

// URLKey keys an entry by the normalized host and path of rawURL. Scheme,
// query, fragment, a leading "www." and a trailing slash do not matter.
func URLKey(ns Namespace, rawURL string) string {
	return Key(ns, NormalizeURL(rawURL))
}

func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	return host + path
}
