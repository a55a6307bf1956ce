// Package stitch composes downloaded image pairs side by side for review.
package stitch

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nfnt/resize"
	"pairfetch/pkg/logger"
	"pairfetch/pkg/storage"
)

// SeparatorWidth is the width in pixels of the black bar between the two images
const SeparatorWidth = 10

const (
	leftSuffix     = "-img0.png"
	rightSuffix    = "-img1.png"
	stitchedSuffix = "-stitched.png"
)

// Pair scales both images to the smaller of their heights, keeping aspect
// ratios, and places them left and right of a black separator.
func Pair(left, right image.Image) *image.RGBA {
	height := left.Bounds().Dy()
	if h := right.Bounds().Dy(); h < height {
		height = h
	}

	left = scaleToHeight(left, height)
	right = scaleToHeight(right, height)

	lw, rw := left.Bounds().Dx(), right.Bounds().Dx()
	out := image.NewRGBA(image.Rect(0, 0, lw+SeparatorWidth+rw, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, lw, height), left, left.Bounds().Min, draw.Src)
	draw.Draw(out, image.Rect(lw+SeparatorWidth, 0, lw+SeparatorWidth+rw, height), right, right.Bounds().Min, draw.Src)

	return out
}

func scaleToHeight(img image.Image, height int) image.Image {
	b := img.Bounds()
	if b.Dy() == height {
		return img
	}
	width := b.Dx() * height / b.Dy()
	if width < 1 {
		width = 1
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
}

// Report lists what Directory did
type Report struct {
	Stitched []string
	// Unpaired lists left images whose right partner is missing
	Unpaired []string
	// Failed maps an image id to the error that stopped its pair
	Failed map[string]error
}

// Directory stitches every {id}-img0.png in inputDir that has a matching
// {id}-img1.png into outputDir/{id}-stitched.png. A pair that cannot be
// read is reported and skipped.
func Directory(ctx context.Context, inputDir, outputDir string, log logger.Logger) (Report, error) {
	log = logger.OrNop(log)
	report := Report{Failed: make(map[string]error)}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return report, fmt.Errorf("failed to read input directory: %w", err)
	}

	out, err := storage.NewManager(outputDir)
	if err != nil {
		return report, err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, leftSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, leftSuffix)

		rightPath := filepath.Join(inputDir, id+rightSuffix)
		if _, err := os.Stat(rightPath); err != nil {
			log.WithField("image", name).Warn("Skipping image without a partner")
			report.Unpaired = append(report.Unpaired, name)
			continue
		}

		target := id + stitchedSuffix
		if err := stitchFiles(filepath.Join(inputDir, name), rightPath, out, target); err != nil {
			log.WithError(err).WithField("image_id", id).Warn("Failed to stitch pair")
			report.Failed[id] = err
			continue
		}

		log.WithField("path", out.Path(target)).Debug("Saved stitched image")
		report.Stitched = append(report.Stitched, out.Path(target))
	}

	return report, nil
}

func stitchFiles(leftPath, rightPath string, out *storage.Manager, target string) error {
	left, err := decodeFile(leftPath)
	if err != nil {
		return err
	}
	right, err := decodeFile(rightPath)
	if err != nil {
		return err
	}

	pending, err := out.Create(target)
	if err != nil {
		return err
	}
	defer pending.Abort()

	if err := png.Encode(pending, Pair(left, right)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", target, err)
	}
	return pending.Commit()
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
