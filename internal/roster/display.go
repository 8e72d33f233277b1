package roster

import (
	"context"

	"github.com/kozaktomas/face-attendance/internal/identity"
)

// DisplayName resolves the name shown for a matched identity id: the
// student with that reg no, else the student whose photo key equals the
// id, else the id with image extensions stripped.
func DisplayName(students []Student, id string, extensions []string) string {
	for _, s := range students {
		if s.RegNo == id {
			return s.Name
		}
	}
	for _, s := range students {
		if s.Photo != "" && identity.AssetKey(s.Photo, extensions) == id {
			return s.Name
		}
	}
	return identity.AssetKey(id, extensions)
}

// DisplayName resolves id against the stored roster.
func (r *Roster) DisplayName(ctx context.Context, id string, extensions []string) string {
	return DisplayName(r.List(ctx), id, extensions)
}

// Owners links every student's photo to their reg no for identity.Loader.
func Owners(students []Student) []identity.Owner {
	owners := make([]identity.Owner, 0, len(students))
	for _, s := range students {
		owners = append(owners, identity.Owner{Photo: s.Photo, ID: s.RegNo})
	}
	return owners
}
