// Package verify checks downloaded images against their expected perceptual hash.
package verify

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"
	"strings"

	// Decoders for every format an image host is likely to serve
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"
	"pairfetch/pkg/logger"
)

// hashSize is the side of the thumbnail the average hash is taken over
const hashSize = 8

// ErrDecode is wrapped by every error caused by bytes that are not a readable image
var ErrDecode = errors.New("image could not be decoded")

// LineWriter appends one tab separated record
type LineWriter interface {
	WriteLine(fields ...string) error
}

// MismatchRecord describes a file whose hash differs from the reference
type MismatchRecord struct {
	URL      string
	Filename string
	Actual   string
	Expected string
}

// Fields returns the record in log column order
func (r MismatchRecord) Fields() []string {
	return []string{r.URL, r.Filename, r.Actual, r.Expected}
}

// Result is the outcome of verifying one file. Distance is the number of
// differing bits on a mismatch, or -1 when the expected hash is not hex.
type Result struct {
	Hash     string
	Expected string
	Mismatch bool
	Distance int
}

// Verifier hashes downloaded files and records mismatches. Mismatches are
// advisory: files are left in place.
type Verifier struct {
	mismatches LineWriter
	logger     logger.Logger
	count      int
}

// New creates a Verifier that appends mismatch records to mismatches
func New(mismatches LineWriter, log logger.Logger) *Verifier {
	return &Verifier{
		mismatches: mismatches,
		logger:     logger.OrNop(log),
	}
}

// Verify decodes the file at path and compares its average hash with
// expected. An empty expected hash only checks that the file decodes.
// Errors wrapping ErrDecode concern the file; any other error means the
// mismatch log could not be written.
func (v *Verifier) Verify(path, filename, url, expected string) (Result, error) {
	hash, err := HashFile(path)
	if err != nil {
		return Result{}, err
	}

	result := Result{Hash: hash, Expected: expected}
	if expected == "" || sameHash(hash, expected) {
		return result, nil
	}

	result.Mismatch = true
	result.Distance = distance(hash, expected)
	record := MismatchRecord{URL: url, Filename: filename, Actual: hash, Expected: expected}
	if err := v.mismatches.WriteLine(record.Fields()...); err != nil {
		return result, fmt.Errorf("failed to record hash mismatch: %w", err)
	}
	v.count++

	v.logger.WarnWithFields("Hash mismatch", map[string]interface{}{
		"filename": filename,
		"url":      url,
		"actual":   hash,
		"expected": expected,
		"distance": result.Distance,
	})

	return result, nil
}

// Mismatches returns how many mismatch records this Verifier has written
func (v *Verifier) Mismatches() int {
	return v.count
}

func sameHash(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// HashFile decodes the image at path and returns its average hash
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return AverageHash(img)
}

// AverageHash returns the 64-bit average hash of img as 16 lowercase hex
// digits. The image is converted to 8-bit luma first and then reduced to an
// 8x8 thumbnail with a Lanczos filter; a bit is set for every thumbnail pixel
// brighter than the thumbnail mean, the top-left pixel being the most
// significant bit. These are the steps of Python's imagehash.average_hash, so
// reference hashes produced with it compare equal.
func AverageHash(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", errors.New("failed to compute average hash: empty image")
	}

	thumb := resize.Resize(hashSize, hashSize, toLuma(img), resize.Lanczos3)

	var pixels [hashSize * hashSize]float64
	var sum float64
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			p := thumb.Bounds().Min
			v := float64(color.GrayModel.Convert(thumb.At(p.X+x, p.Y+y)).(color.Gray).Y)
			pixels[y*hashSize+x] = v
			sum += v
		}
	}
	mean := sum / float64(len(pixels))

	var bits uint64
	for _, v := range pixels {
		bits <<= 1
		if v > mean {
			bits |= 1
		}
	}

	hash := goimagehash.NewImageHash(bits, goimagehash.AHash)
	return fmt.Sprintf("%016x", hash.GetHash()), nil
}

// toLuma converts img to 8-bit grayscale with the ITU-R 601-2 weights in
// fixed point, ignoring alpha.
func toLuma(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}

	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: luma(c.R, c.G, c.B)})
		}
	}
	return gray
}

func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

// distance counts the bits that differ between two hex hashes
func distance(actual, expected string) int {
	a, err := strconv.ParseUint(strings.TrimSpace(actual), 16, 64)
	if err != nil {
		return -1
	}
	e, err := strconv.ParseUint(strings.TrimSpace(expected), 16, 64)
	if err != nil {
		return -1
	}

	d, err := goimagehash.NewImageHash(a, goimagehash.AHash).Distance(goimagehash.NewImageHash(e, goimagehash.AHash))
	if err != nil {
		return -1
	}
	return d
}
