package rod

import (
	"context"
	"encoding/base64"

	"github.com/fwojciec/crosspost"
	"github.com/go-rod/rod"
)

// Default selectors used when a DOMPasteConfig leaves them empty.
const (
	DefaultEditorSelector = `[contenteditable="true"]`
	DefaultResultSelector = "img"
)

// pollInterval is how often, in milliseconds, the page is checked for the
// hosted image after the paste event.
const pollInterval = 250

// pasteScript runs with the editor element as this. It records the image
// sources already present, dispatches a synthetic paste carrying the image,
// and resolves with the first new source that the editor has replaced with a
// hosted URL.
const pasteScript = `function (b64, mime, resultSelector, interval) {
	const editor = this;
	const hosted = (src) => src && !src.startsWith("blob:") && !src.startsWith("data:");
	const before = new Set(Array.from(document.querySelectorAll(resultSelector)).map((el) => el.getAttribute("src")));

	const bytes = Uint8Array.from(atob(b64), (c) => c.charCodeAt(0));
	const ext = (mime.split("/")[1] || "png").replace("jpeg", "jpg").replace("+xml", "");
	const file = new File([bytes], "image." + ext, { type: mime });
	const transfer = new DataTransfer();
	transfer.items.add(file);

	editor.focus();
	editor.dispatchEvent(new ClipboardEvent("paste", { clipboardData: transfer, bubbles: true, cancelable: true }));

	return new Promise((resolve) => {
		const check = () => {
			for (const el of document.querySelectorAll(resultSelector)) {
				const src = el.getAttribute("src");
				if (!before.has(src) && hosted(src)) {
					resolve(new URL(src, document.baseURI).href);
					return;
				}
			}
			setTimeout(check, interval);
		};
		check();
	});
}`

var _ crosspost.PasteTarget = (*Paster)(nil)

// Paster uploads images by pasting them into an editor page opened in the
// managed browser. The editor's own upload handler does the transfer; Paster
// only waits for the resulting image URL to appear in the page.
//
// Paster is safe for concurrent use. Each paste opens its own page.
type Paster struct {
	manager *BrowserManager
}

// NewPaster creates a Paster that opens pages in manager's browser.
func NewPaster(manager *BrowserManager) *Paster {
	return &Paster{manager: manager}
}

// PasteImage opens cfg.PageURL, pastes data into the editor and returns the
// hosted URL the page assigns. The caller bounds the wait through ctx.
func (p *Paster) PasteImage(ctx context.Context, data []byte, mimeType string, cfg crosspost.DOMPasteConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", crosspost.Errorf(crosspost.EUPLOAD, "no image bytes to paste")
	}
	if mimeType == "" {
		mimeType = crosspost.MIMEType(crosspost.DefaultImageFormat)
	}
	editorSelector := cfg.EditorSelector
	if editorSelector == "" {
		editorSelector = DefaultEditorSelector
	}
	resultSelector := cfg.ResultSelector
	if resultSelector == "" {
		resultSelector = DefaultResultSelector
	}

	page, release, err := p.manager.Page()
	if err != nil {
		return "", err
	}
	defer release()

	page = page.Context(ctx)

	if err := page.Navigate(cfg.PageURL); err != nil {
		return "", pasteErr(ctx, "navigate to "+cfg.PageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", pasteErr(ctx, "load "+cfg.PageURL, err)
	}

	editor, err := page.Element(editorSelector)
	if err != nil {
		return "", pasteErr(ctx, "find editor "+editorSelector, err)
	}

	obj, err := editor.Evaluate(rod.Eval(pasteScript,
		base64.StdEncoding.EncodeToString(data),
		mimeType,
		resultSelector,
		pollInterval,
	).ByPromise())
	if err != nil {
		return "", pasteErr(ctx, "paste into "+cfg.PageURL, err)
	}

	hosted := obj.Value.Str()
	if hosted == "" {
		return "", crosspost.Errorf(crosspost.EUPLOAD, "editor at %s returned no image URL", cfg.PageURL)
	}
	return hosted, nil
}

// pasteErr returns the context error when ctx ended, so callers can tell a
// timeout from a page failure.
func pasteErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return crosspost.Errorf(crosspost.EUPLOAD, "%s: %s", op, err)
}
