// Package frame implements the preprocessing of raw game screens into
// fixed-size grayscale frames and the sliding window of frames that an
// agent receives as input at each decision point.
//
// Frames are immutable once produced. The same *Frame is referenced by
// every Stack window that contains it and by the Transitions recorded
// in an episode, so no function in this package ever modifies a Frame
// after it has been returned.
package frame

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// Size is the width and height of a preprocessed frame
	Size = 84

	// Pixels is the number of intensity values in a single frame
	Pixels = Size * Size

	// MaxIntensity is the intensity of a white pixel
	MaxIntensity = 255.0
)

// Frame is a single preprocessed game screen: a Size x Size grid of
// 8-bit grayscale intensities stored in row major order.
type Frame struct {
	pix [Pixels]uint8
}

// Preprocess converts a raw screen observation into a Frame. The screen
// is converted to grayscale luminance and rescaled to Size x Size with
// bilinear interpolation. Preprocess is deterministic: equal screens
// always produce equal frames.
func Preprocess(screen image.Image) *Frame {
	gray := image.NewGray(image.Rect(0, 0, Size, Size))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), screen, screen.Bounds(),
		draw.Src, nil)

	f := &Frame{}
	for y := 0; y < Size; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+Size]
		copy(f.pix[y*Size:(y+1)*Size], row)
	}
	return f
}

// FromBytes creates a Frame from Pixels raw intensities in row major
// order. The input is copied.
func FromBytes(b []byte) (*Frame, error) {
	if len(b) != Pixels {
		return nil, fmt.Errorf("frombytes: invalid number of pixels "+
			"\n\twant(%v) \n\thave(%v)", Pixels, len(b))
	}
	f := &Frame{}
	copy(f.pix[:], b)
	return f, nil
}

// Obscure returns a copy of f with a centered square of side size set
// to zero intensity. If size <= 0, f itself is returned. Sizes larger
// than the frame obscure the entire frame.
//
// The argument frame is never modified, so frames that are already
// referenced by older stacks or transitions are unaffected.
func Obscure(f *Frame, size int) *Frame {
	if size <= 0 {
		return f
	}
	if size > Size {
		size = Size
	}

	obscured := &Frame{pix: f.pix}
	start := (Size - size) / 2
	for y := start; y < start+size; y++ {
		for x := start; x < start+size; x++ {
			obscured.pix[y*Size+x] = 0
		}
	}
	return obscured
}

// At returns the intensity of the pixel at column x and row y
func (f *Frame) At(x, y int) uint8 {
	return f.pix[y*Size+x]
}

// Bytes returns a copy of the raw intensities of the frame in row major
// order
func (f *Frame) Bytes() []byte {
	b := make([]byte, Pixels)
	copy(b, f.pix[:])
	return b
}

// AppendTo appends the normalized intensities of the frame, each in
// [0, 1], to dst and returns the extended slice.
func (f *Frame) AppendTo(dst []float64) []float64 {
	start := len(dst)
	for _, p := range f.pix {
		dst = append(dst, float64(p))
	}
	floats.Scale(1/MaxIntensity, dst[start:])
	return dst
}

// Vector returns the normalized intensities of the frame as a vector
func (f *Frame) Vector() *mat.VecDense {
	return mat.NewVecDense(Pixels, f.AppendTo(make([]float64, 0, Pixels)))
}

// Image returns the frame as a grayscale image
func (f *Frame) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Size, Size))
	copy(img.Pix, f.pix[:])
	return img
}

// Equal returns whether two frames hold identical intensities
func (f *Frame) Equal(other *Frame) bool {
	return f.pix == other.pix
}
