// Package rod pastes images into live editor pages through a managed
// headless Chrome, for targets whose only upload channel is their editor.
package rod

import (
	"fmt"
	"sync"

	"github.com/fwojciec/crosspost"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultMaxPages is the number of pages opened before Chrome is replaced.
const DefaultMaxPages = 50

// BrowserManager owns the Chrome instance used for pastes. Pages are leased
// with Page; once maxPages have been opened the browser is replaced at the
// next moment no lease is outstanding, so in-flight pastes are never cut off.
//
// With a user data dir the old browser is stopped before the new one starts,
// since Chrome locks its profile directory.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	opened   int64 // pages opened on the current browser
	leased   int   // pages not yet released
	closed   bool

	maxPages int64
	headless bool
	dataDir  string
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets how many pages are opened before the browser is replaced.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithUserDataDir runs Chrome with a persistent profile directory so editor
// logins survive restarts.
func WithUserDataDir(dir string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.dataDir = dir
	}
}

// WithHeadless controls whether Chrome runs without a window. A visible
// window is useful to log in to a target once. Defaults to true.
func WithHeadless(headless bool) ManagerOption {
	return func(bm *BrowserManager) {
		bm.headless = headless
	}
}

// NewBrowserManager launches Chrome. Close must be called when the manager
// is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
		headless: true,
	}
	for _, opt := range opts {
		opt(bm)
	}

	if err := bm.launchBrowser(); err != nil {
		return nil, err
	}

	return bm, nil
}

// Page opens a blank page. The returned release func closes the page and
// must be called exactly once.
func (bm *BrowserManager) Page() (*rod.Page, func(), error) {
	bm.mu.Lock()
	if bm.closed {
		bm.mu.Unlock()
		return nil, nil, crosspost.Errorf(crosspost.EUPLOAD, "browser is closed")
	}
	if bm.opened >= bm.maxPages && bm.leased == 0 {
		bm.recycleBrowser()
	}
	if bm.browser == nil {
		if err := bm.launchBrowser(); err != nil {
			bm.mu.Unlock()
			return nil, nil, err
		}
	}
	browser := bm.browser
	bm.opened++
	bm.leased++
	bm.mu.Unlock()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		bm.release()
		return nil, nil, fmt.Errorf("open page: %w", err)
	}

	var once sync.Once
	return page, func() {
		once.Do(func() {
			_ = page.Close()
			bm.release()
		})
	}, nil
}

func (bm *BrowserManager) release() {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.leased--
}

// Close releases browser resources. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil
	}
	bm.closed = true
	return bm.closeBrowser()
}

// launchBrowser starts Chrome. Must be called with mu held.
func (bm *BrowserManager) launchBrowser() error {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(bm.headless)
	if bm.dataDir != "" {
		l = l.UserDataDir(bm.dataDir)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}

	bm.browser = browser
	bm.launcher = l
	bm.opened = 0
	return nil
}

// closeBrowser stops the current browser. Must be called with mu held.
func (bm *BrowserManager) closeBrowser() error {
	var err error
	if bm.browser != nil {
		err = bm.browser.Close()
		bm.browser = nil
	}
	if bm.launcher != nil {
		bm.launcher.Kill()
		bm.launcher = nil
	}
	return err
}

// recycleBrowser replaces the browser. Without a profile directory the new
// browser is started first and the old one kept if that fails. Must be
// called with mu held and no pages leased.
func (bm *BrowserManager) recycleBrowser() {
	if bm.dataDir != "" {
		_ = bm.closeBrowser()
		_ = bm.launchBrowser()
		return
	}

	oldBrowser, oldLauncher := bm.browser, bm.launcher
	if err := bm.launchBrowser(); err != nil {
		bm.browser, bm.launcher = oldBrowser, oldLauncher
		return
	}
	if oldBrowser != nil {
		_ = oldBrowser.Close()
	}
	if oldLauncher != nil {
		oldLauncher.Kill()
	}
}

// LauncherPID returns the process ID of the browser launcher, or 0 when no
// browser is running.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.launcher == nil {
		return 0
	}
	return bm.launcher.PID()
}
