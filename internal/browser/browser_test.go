package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	assert.NoError(t, r.Open("https://nodejs.org/"))
	assert.NoError(t, r.Open("http://localhost:5678"))
	assert.Equal(t, []string{"https://nodejs.org/", "http://localhost:5678"}, r.Opened)

	r.Err = errors.New("no display")
	assert.EqualError(t, r.Open("x"), "no display")
}

func TestOpenerFunc(t *testing.T) {
	var got string
	var o Opener = OpenerFunc(func(u string) error { got = u; return nil })
	assert.NoError(t, o.Open("http://localhost:5678"))
	assert.Equal(t, "http://localhost:5678", got)
}

var _ Opener = System{}
