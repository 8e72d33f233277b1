package identity

import "strings"

// AssetKey strips every trailing image extension from a photo file name,
// so "john.jpg.png" becomes "john". Matching is case-insensitive.
func AssetKey(filename string, extensions []string) string {
	name := filename
	for {
		stripped := false
		lower := strings.ToLower(name)
		for _, ext := range extensions {
			if ext != "" && strings.HasSuffix(lower, strings.ToLower(ext)) {
				name = name[:len(name)-len(ext)]
				stripped = true
				break
			}
		}
		if !stripped {
			return name
		}
	}
}

// ResolveID maps an asset key to an identity id. A roster entry whose
// photo has the same key wins; otherwise the key itself is the id.
func ResolveID(key string, owners map[string]string) string {
	if id, ok := owners[key]; ok && id != "" {
		return id
	}
	return key
}

// Owner links a stored photo to the identity it belongs to.
type Owner struct {
	Photo string
	ID    string
}

// PhotoOwners builds the asset key -> identity id table used by ResolveID.
// Owners without a photo or id are ignored.
func PhotoOwners(extensions []string, owners []Owner) map[string]string {
	table := make(map[string]string, len(owners))
	for _, o := range owners {
		if o.Photo == "" || o.ID == "" {
			continue
		}
		table[AssetKey(o.Photo, extensions)] = o.ID
	}
	return table
}
