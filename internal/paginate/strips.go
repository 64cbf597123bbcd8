package paginate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"runtime"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Strip copies the rows of s out of img into a fresh image.
func Strip(img image.Image, s PageSlice) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), s.HeightPx))
	src := image.Rect(b.Min.X, b.Min.Y+s.SourceY, b.Max.X, b.Min.Y+s.SourceY+s.HeightPx)
	draw.Copy(dst, image.Point{}, img, src, draw.Src, nil)
	return dst
}

// EncodeStrips PNG-encodes the strip of every plan concurrently. Entries for
// empty slices are nil. At most workers encodes run at once; workers <= 0
// means GOMAXPROCS.
func EncodeStrips(ctx context.Context, img image.Image, plans []PagePlan, workers int) ([][]byte, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([][]byte, len(plans))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	for i, p := range plans {
		i, p := i, p
		if p.Slice.HeightPx == 0 {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := enc.Encode(&buf, Strip(img, p.Slice)); err != nil {
				return fmt.Errorf("encoding page %d: %w", p.Slice.PageNumber, err)
			}
			out[i] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
