// Package browser opens URLs in the operator's default browser.
package browser

import (
	"github.com/skratchdot/open-golang/open"
)

// Opener opens a URL for the operator.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

// Open implements Opener.
func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// System opens URLs with the platform handler (open, xdg-open, start).
type System struct{}

// Open implements Opener.
func (System) Open(url string) error {
	return open.Run(url)
}

// Recorder remembers every URL instead of opening it. Used for headless
// runs and tests.
type Recorder struct {
	Opened []string
	Err    error
}

// Open implements Opener.
func (r *Recorder) Open(url string) error {
	r.Opened = append(r.Opened, url)
	return r.Err
}
