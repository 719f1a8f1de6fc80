package convert

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// HTMLOptions controls headless Chrome rendering.
type HTMLOptions struct {
	ChromePath  string
	PaperWidth  float64 // inches
	PaperHeight float64 // inches
	Margin      float64 // inches
	Timeout     time.Duration
}

// HTMLToPDF renders an HTML document (or a remote URL when url is non-empty)
// to PDF using headless Chrome.
func HTMLToPDF(html, url string, o HTMLOptions) ([]byte, error) {
	if o.PaperWidth <= 0 {
		o.PaperWidth = 8.27 // A4
	}
	if o.PaperHeight <= 0 {
		o.PaperHeight = 11.69
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}

	tmpDir, err := os.MkdirTemp("", "chromedata-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(tmpDir),
		// Force software rendering; minimal containers have no GPU stack.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if o.ChromePath != "" {
		allocatorOptions = append(allocatorOptions, chromedp.ExecPath(o.ChromePath))
	}
	if os.Geteuid() == 0 {
		allocatorOptions = append(allocatorOptions, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, _ := chromedp.NewExecAllocator(context.Background(), allocatorOptions...)
	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	chromeCtx, cancel = context.WithTimeout(chromeCtx, o.Timeout)
	defer cancel()

	return renderInTab(chromeCtx, html, url, o)
}

func renderInTab(ctx context.Context, html, url string, o HTMLOptions) ([]byte, error) {
	var pdfBuf []byte
	var actions []chromedp.Action

	if url != "" {
		actions = append(actions,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	} else {
		actions = append(actions,
			chromedp.Navigate("about:blank"),
			chromedp.ActionFunc(func(ctx context.Context) error {
				frame, err := page.GetFrameTree().Do(ctx)
				if err != nil {
					return err
				}
				return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
			}),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}

	actions = append(actions,
		chromedp.Sleep(200*time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(o.PaperWidth).
				WithPaperHeight(o.PaperHeight).
				WithMarginTop(o.Margin).
				WithMarginBottom(o.Margin).
				WithMarginLeft(o.Margin).
				WithMarginRight(o.Margin).
				Do(ctx)
			return err
		}),
	)

	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, err
	}
	return pdfBuf, nil
}
