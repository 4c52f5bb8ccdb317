// Package video turns a video file into a forward-only stream of sampled frames,
// roughly one per second of footage.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
)

// ErrSourceUnavailable is returned when a video cannot be opened or decoded.
var ErrSourceUnavailable = errors.New("video source unavailable")

// Decoder reads raw frames from an opened container in order. ReadFrame
// returns io.EOF once the stream is exhausted.
type Decoder interface {
	FrameRate() float64
	ReadFrame() (image.Image, error)
	Close() error
}

// skipper is implemented by decoders that can consume a frame without
// building an image for it.
type skipper interface {
	SkipFrame() error
}

// Opener opens a decoder for the file at path.
type Opener func(ctx context.Context, path string) (Decoder, error)

type Frame struct {
	Index int
	Image image.Image
}

// Stride returns how many raw frames lie between two samples: the frame rate
// rounded to the nearest integer, never less than one.
func Stride(fps float64) int {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		return 1
	}
	return max(1, int(math.Round(fps)))
}

type Sampler struct {
	dec    Decoder
	stride int
	read   int
	closed bool
}

// Open opens path with open and wraps any failure in ErrSourceUnavailable.
func Open(ctx context.Context, open Opener, path string) (*Sampler, error) {
	dec, err := open(ctx, path)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}
	return NewSampler(dec), nil
}

func NewSampler(dec Decoder) *Sampler {
	return &Sampler{dec: dec, stride: Stride(dec.FrameRate())}
}

func (s *Sampler) Stride() int { return s.stride }

// FramesRead counts raw frames consumed so far, sampled or not.
func (s *Sampler) FramesRead() int { return s.read }

// Next advances to the next sampled frame. Frames between samples are read
// and discarded rather than seeked over. It returns io.EOF at end of stream.
func (s *Sampler) Next() (Frame, error) {
	if s.closed {
		return Frame{}, io.EOF
	}
	for {
		idx := s.read
		if idx%s.stride != 0 {
			if sk, ok := s.dec.(skipper); ok {
				if err := sk.SkipFrame(); err != nil {
					return Frame{}, s.readErr(idx, err)
				}
				s.read++
				continue
			}
		}
		img, err := s.dec.ReadFrame()
		if err != nil {
			return Frame{}, s.readErr(idx, err)
		}
		s.read++
		if idx%s.stride == 0 {
			return Frame{Index: idx, Image: img}, nil
		}
	}
}

func (s *Sampler) readErr(idx int, err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("%w: frame %d: %v", ErrSourceUnavailable, idx, err)
}

// Close releases the decoder. Safe to call more than once.
func (s *Sampler) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.dec.Close()
}
