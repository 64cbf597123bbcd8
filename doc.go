// Package mdrender renders Markdown for live preview and exports it to
// paginated PDF.
//
// # Quick Start
//
// Create a service, render or export, and close when done:
//
//	svc, err := mdrender.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	html := svc.RenderSync("# Hello\n\nWorld")
//
//	res, err := svc.Export(ctx, markdown, mdrender.DefaultExportOptions("notes.md"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Location, res.Artifact.PageCount)
//
// # Rendering
//
// Renders are content-addressed: the markdown is hashed and the sanitized
// HTML cached, whole for small documents and per chunk for documents of
// 100,000 bytes or more. RenderAsync serializes requests through a queue;
// when more than five are waiting, all but the newest are superseded.
//
// # Export Pipeline
//
// An export moves through these stages, reported on ExportResult.State
// and through WithStageHook:
//
//  1. Building: diagrams rendered, surface document laid out at page width
//  2. Preloading: images on the surface awaited
//  3. Rasterizing: the surface captured as one bitmap at device scale 2
//  4. Slicing: the bitmap cut into page-height strips
//  5. Assembling: strips placed on PDF pages with header, footer, watermark
//  6. Saved: the PDF handed to the Sink
//
// Any failure moves the export to StateAborted. The surface is destroyed on
// every path out.
//
// # Configuration
//
// Use functional options to customize the service:
//
//	svc, err := mdrender.New(
//	    mdrender.WithLogger(logger),
//	    mdrender.WithSink(mdrender.FileSink{Dir: "out"}),
//	    mdrender.WithBrowser(mdrender.BrowserOptions{NoSandbox: true}),
//	)
//
// # Parallel Exports
//
// ServicePool hands out services, each with its own browser:
//
//	pool := mdrender.NewServicePool(mdrender.ResolvePoolSize(0))
//	defer pool.Close()
//
//	svc, err := pool.Acquire()
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(svc)
package mdrender
