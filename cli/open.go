package cli

import "github.com/pkg/browser"

// openFile hands path to the desktop's default application.
func openFile(path string) error {
	return browser.OpenFile(path)
}
