package attendance

import (
	"context"
	"log"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/roster"
)

// DeleteResult reports what Delete removed.
type DeleteResult struct {
	Students int // roster entries
	Photos   int
	Entries  int // index entries
}

// Delete removes a student from the roster, their stored photos under
// every accepted extension, and all their index entries. Photo removal
// failures are logged and do not fail the call. Deleting an unknown
// student succeeds with nothing removed.
func (s *Service) Delete(ctx context.Context, regNo string) (DeleteResult, error) {
	regNo = strings.TrimSpace(regNo)
	if regNo == "" {
		return DeleteResult{}, ErrMissingRegNo
	}

	var res DeleteResult
	err := s.roster.Update(ctx, func(txn *roster.Txn) error {
		res.Students = txn.Remove(regNo)
		txn.OnCommit(func() {
			// the roster is already written; finish even if the request is gone
			ctx := context.WithoutCancel(ctx)
			for _, ext := range s.images.Extensions {
				name := regNo + ext
				removed, err := s.assets.Delete(ctx, name)
				if err != nil {
					log.Printf("warning: removing photo %s: %v", sanitize(name), err)
					continue
				}
				if removed {
					res.Photos++
				}
			}
			res.Entries = s.index.Remove(regNo)
		})
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}

	s.metrics.Delete()
	s.metrics.SetIndexEntries(s.index.Len())
	return res, nil
}
