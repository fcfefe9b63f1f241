package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	buf := &bytes.Buffer{}
	PrintBanner(buf, "1.2.3")

	assert.Contains(t, buf.String(), "service desk assistant 1.2.3")
}

func TestRenderer(t *testing.T) {
	render := NewRenderer()

	out, err := render("What is your **email** address?")
	require.NoError(t, err)
	assert.Contains(t, out, "email")
	assert.Contains(t, out, "address?")
}
