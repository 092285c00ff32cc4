package gallery

import (
	"fmt"
	"path"
	"strings"
)

// Logical key namespaces inside the blob store. Originals, cached variants,
// and staged temp objects never collide because each lives under its own
// prefix.
const (
	NamespaceFiles = "files"
	NamespaceCache = "cache"
	NamespaceTemp  = "tmp"
)

// Identifier derives an object identifier from a content hash and the
// declared original filename: "<hash>.<ext>", or just "<hash>" when the
// filename carries no extension. Two objects with identical bytes always
// share the hash portion, which is what dedup keys on.
func Identifier(hash, filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return hash
	}
	return hash + "." + ext
}

// NormalizeETag strips the quoting and multipart part-count suffix some
// backends attach to integrity tags, leaving a stable URL-safe hash string.
func NormalizeETag(etag string) string {
	etag = strings.Trim(etag, `"`)
	if i := strings.IndexByte(etag, '-'); i > 0 {
		etag = etag[:i]
	}
	return etag
}

// JoinKey joins namespace segments and a key into a blob store key,
// collapsing repeated separators deterministically.
func JoinKey(segments ...string) string {
	joined := strings.Join(segments, "/")
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	return strings.Trim(joined, "/")
}

// FileKey returns the blob key for an original object.
func FileKey(identifier string) string {
	return JoinKey(NamespaceFiles, identifier)
}

// CacheKey returns the blob key for a derived variant at the given level.
func CacheKey(level Level, identifier string) string {
	return JoinKey(NamespaceCache, string(level), identifier)
}

// TempKey returns a staging key for an upload whose identifier is not yet
// known.
func TempKey(id string) string {
	return JoinKey(NamespaceTemp, id)
}

// CacheNamespace returns the serving namespace for a level, e.g. "cache/low".
func CacheNamespace(level Level) string {
	return fmt.Sprintf("%s/%s", NamespaceCache, level)
}
