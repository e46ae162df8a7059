// Package pageview is a virtualized document viewer engine: it renders
// only the pages intersecting the viewport (plus overscan), reuses
// drawing surfaces through a bounded pool, cancels renders for pages
// that scroll away, and searches page text lazily.
//
// The engine does not parse documents. The host supplies a
// document.Opener adapting its decoder (typically a PDF library), a
// result sink receiving per-page completions, and explicit viewport
// events:
//
//	eng := pageview.New(opener,
//	    pageview.WithOnPage(func(r render.Result) {
//	        if r.Err != nil {
//	            showPlaceholder(r.Page)
//	            return
//	        }
//	        display(r.Page, r.Surface)
//	    }),
//	    pageview.WithOnEvict(func(page int) {
//	        eng.Pool().Release(takeDisplayed(page))
//	    }),
//	)
//	defer eng.Close()
//
//	if err := eng.Open(ctx, document.URL("report.pdf")); err != nil { ... }
//	eng.SetViewportSize(800, 1000)
//	eng.Scroll(2400)
//
// Pages complete independently and out of order; the display layer
// accepts them per page and returns each surface to the pool when the
// page leaves the screen. GPU hosts can layer package present on top
// to keep per-page textures resident.
package pageview
