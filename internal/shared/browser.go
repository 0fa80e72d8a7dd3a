package shared

import (
	"fmt"

	"github.com/pkg/browser"
)

// openURL is swapped out in tests so no browser is launched.
var openURL = browser.OpenURL

// OpenBrowser opens url in the user's default browser.
func OpenBrowser(url string) error {
	if err := openURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
