package markup

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// VersionListing is the content of a model folder grouped by version sub-folder.
type VersionListing struct {
	Prefix string
	// Members maps a version to the object paths under it, relative to the version folder
	// (e.g. "markup.csv", "preprocessed/preprocessed_rules.csv").
	Members map[string][]string
	// Latest is the lexicographically greatest version, "" when the folder is empty.
	Latest string
}

func (v VersionListing) HasLatest() bool { return v.Latest != "" }

// Has reports whether name exists under version.
func (v VersionListing) Has(version, name string) bool {
	for _, m := range v.Members[version] {
		if m == name {
			return true
		}
	}
	return false
}

// Versions returns all versions in ascending order.
func (v VersionListing) Versions() []string {
	out := make([]string, 0, len(v.Members))
	for ver := range v.Members {
		out = append(out, ver)
	}
	sort.Strings(out)
	return out
}

// ModelFolder is the storage prefix for an account's model type, e.g. "models/<account>/crm".
func ModelFolder(root string, accountID uuid.UUID, modelType string) string {
	return strings.TrimRight(root, "/") + "/" + accountID.String() + "/" + modelType
}

// ResolveVersions lists prefix and groups keys by the first path segment below it.
// Version identifiers are epoch-second folder names, so lexicographic order is
// chronological as long as they share a digit count.
func ResolveVersions(ctx context.Context, store ObjectStore, prefix string) (VersionListing, error) {
	prefix = strings.TrimRight(prefix, "/")
	out := VersionListing{Prefix: prefix, Members: map[string][]string{}}
	keys, err := store.ListKeys(ctx, prefix+"/")
	if err != nil {
		return out, fmt.Errorf("list %s: %w", prefix, err)
	}
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix+"/")
		version, name, ok := strings.Cut(rel, "/")
		if !ok || version == "" {
			// plain object directly under the folder, not a version
			continue
		}
		if _, seen := out.Members[version]; !seen {
			out.Members[version] = []string{}
		}
		if name != "" {
			out.Members[version] = append(out.Members[version], name)
		}
		if version > out.Latest {
			out.Latest = version
		}
	}
	return out, nil
}
