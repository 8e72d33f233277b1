package attendance

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// Status is the outcome of Mark.
type Status string

const (
	StatusMarked         Status = "success"
	StatusAlreadyMarked  Status = "exists"
	StatusUnrecognized   Status = "unknown"
	StatusNoFace         Status = "no_face"
	StatusEncodingFailed Status = "encoding_failed"
)

// MarkResult describes what Mark did. Name, RegNo and Record are set for
// StatusMarked and StatusAlreadyMarked.
type MarkResult struct {
	Status   Status
	Name     string
	RegNo    string
	Record   ledger.Record
	Distance float64
}

// Mark identifies the faces in a base64 data URL image and records
// attendance for the first recognised one. Faces after it are ignored.
func (s *Service) Mark(ctx context.Context, imageDataURL string) (MarkResult, error) {
	data, err := extractor.DecodeDataURL(imageDataURL)
	if err != nil {
		return MarkResult{}, err
	}
	if err := extractor.Validate(data); err != nil {
		return MarkResult{}, err
	}

	probe, err := extractor.ResizeImage(data, s.images.MaxProbeSize)
	if err != nil {
		return MarkResult{}, err
	}

	faces, err := s.detector.DetectFaces(ctx, probe)
	if err != nil {
		return MarkResult{}, fmt.Errorf("%w: %v", ErrDetection, err)
	}

	result, err := s.markFaces(ctx, faces)
	if err != nil {
		return MarkResult{}, err
	}
	s.metrics.Mark(string(result.Status))
	return result, nil
}

func (s *Service) markFaces(ctx context.Context, faces []extractor.Face) (MarkResult, error) {
	if len(faces) == 0 {
		return MarkResult{Status: StatusNoFace}, nil
	}

	usable := 0
	for _, face := range faces {
		if len(face.Embedding) == 0 {
			continue
		}
		usable++

		match, ok := s.index.Lookup(face.Embedding)
		if !ok {
			continue
		}

		name := s.roster.DisplayName(ctx, match.ID, s.images.Extensions)
		outcome, rec, err := s.ledger.TryMark(ctx, match.ID, name)
		if err != nil {
			return MarkResult{}, err
		}

		status := StatusMarked
		if outcome == ledger.AlreadyMarked {
			status = StatusAlreadyMarked
		}
		return MarkResult{
			Status:   status,
			Name:     name,
			RegNo:    match.ID,
			Record:   rec,
			Distance: match.Distance,
		}, nil
	}

	if usable == 0 {
		return MarkResult{Status: StatusEncodingFailed}, nil
	}
	return MarkResult{Status: StatusUnrecognized}, nil
}
