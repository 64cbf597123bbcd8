package main

import (
	"context"

	"github.com/alnah/go-mdrender"
)

type outputDirKey struct{}

// withOutputDir tells the sink where the export running under ctx goes.
func withOutputDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, outputDirKey{}, dir)
}

// dirSink routes each artifact to the directory carried by its context,
// so one sink serves every pooled service.
type dirSink struct{}

// Save implements mdrender.Sink.
func (dirSink) Save(ctx context.Context, data []byte, filename string) (string, error) {
	dir, _ := ctx.Value(outputDirKey{}).(string)
	return mdrender.FileSink{Dir: dir}.Save(ctx, data, filename)
}
