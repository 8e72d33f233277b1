package attendance

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/assets"
	"github.com/kozaktomas/face-attendance/internal/embedcache"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// RegistrationTimeLayout formats roster registered_on timestamps (UTC).
const RegistrationTimeLayout = "2006-01-02T15:04:05.000000"

// RegisterRequest is a new student with their reference photo.
type RegisterRequest struct {
	Name     string
	RegNo    string
	Dept     string
	Filename string // original upload name, only its extension is used
	Photo    []byte
}

// Register enrolls a student. The photo is checked for a face before
// anything is written; a rejected registration leaves no photo, roster
// entry or index entry behind.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (roster.Student, error) {
	student, err := s.register(ctx, req)
	switch {
	case err == nil:
		s.metrics.Register("ok")
	case errors.Is(err, ErrNoFaceInPhoto):
		s.metrics.Register("no_face")
	case errors.Is(err, ErrAlreadyRegistered):
		s.metrics.Register("duplicate")
	default:
		s.metrics.Register("error")
	}
	return student, err
}

func (s *Service) register(ctx context.Context, req RegisterRequest) (roster.Student, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RegNo = strings.TrimSpace(req.RegNo)
	req.Dept = strings.TrimSpace(req.Dept)
	if req.Name == "" || req.RegNo == "" || req.Dept == "" || len(req.Photo) == 0 {
		return roster.Student{}, ErrMissingFields
	}

	photoName := req.RegNo + s.images.NormalizeExtension(filepath.Ext(req.Filename))
	if err := assets.ValidateName(photoName); err != nil {
		return roster.Student{}, ErrInvalidRegNo
	}

	faces, err := s.detector.DetectFaces(ctx, req.Photo)
	if err != nil {
		log.Printf("warning: face detection failed for registration of %s: %v", sanitize(req.RegNo), err)
		return roster.Student{}, ErrNoFaceInPhoto
	}
	embedding := firstEmbedding(faces)
	if embedding == nil {
		return roster.Student{}, ErrNoFaceInPhoto
	}

	student := roster.Student{
		Name:         req.Name,
		RegNo:        req.RegNo,
		Dept:         req.Dept,
		Photo:        photoName,
		RegisteredOn: s.now().UTC().Format(RegistrationTimeLayout),
	}

	err = s.roster.Update(ctx, func(txn *roster.Txn) error {
		if _, exists := txn.Find(req.RegNo); exists {
			return ErrAlreadyRegistered
		}
		if err := s.assets.Put(ctx, photoName, req.Photo); err != nil {
			return err
		}
		txn.OnRollback(func() {
			if _, err := s.assets.Delete(context.WithoutCancel(ctx), photoName); err != nil {
				log.Printf("warning: removing photo %s after failed registration: %v", photoName, err)
			}
		})
		txn.Add(student)
		txn.OnCommit(func() {
			s.index.Insert(student.RegNo, embedding)
		})
		return nil
	})
	if err != nil {
		return roster.Student{}, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, embedcache.HashImage(req.Photo), embedding); err != nil {
			log.Printf("warning: caching embedding of %s: %v", photoName, err)
		} else if err := embedcache.Flush(s.cache); err != nil {
			log.Printf("warning: saving embedding cache: %v", err)
		}
	}
	s.metrics.SetIndexEntries(s.index.Len())
	return student, nil
}

// sanitize strips line breaks from user input before it is logged.
func sanitize(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
