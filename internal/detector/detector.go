// Package detector provides the client for the external face detection and
// embedding service. The service is opaque: it receives an image and returns
// detected faces with 512-d unit-normalized embeddings. Nothing in this
// module inspects bounding boxes or the model internals.
package detector

import (
	"context"
	"errors"
	"fmt"
)

// Photo validation failures, distinct from a detector service outage.
var (
	ErrNoFace       = errors.New("no face detected in the image")
	ErrTooManyFaces = errors.New("more than one face detected")
)

// Face is one detected face in a frame. Confidence is the detection score
// from the model, distinct from the match confidence produced later by the
// resolver.
type Face struct {
	BBox       [4]float64 `json:"bbox"` // [x1, y1, x2, y2] in pixel coordinates
	Embedding  []float32  `json:"embedding"`
	Confidence float64    `json:"confidence"`
}

// Detector detects faces in an image and returns their embeddings.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Face, error)
}

// Single detects exactly one face in an image, for registration selfies.
// Zero or multiple faces is a validation error reported back to the caller.
func Single(ctx context.Context, d Detector, image []byte) (Face, error) {
	faces, err := d.Detect(ctx, image)
	if err != nil {
		return Face{}, err
	}
	if len(faces) == 0 {
		return Face{}, ErrNoFace
	}
	if len(faces) > 1 {
		return Face{}, fmt.Errorf("%w: found %d, upload a clear selfie with only your face", ErrTooManyFaces, len(faces))
	}
	return faces[0], nil
}
