package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "court", truncate("court", 10))
	assert.Equal(t, "ligne une ligne deux", truncate("ligne une\nligne deux", 30))
	assert.Equal(t, "énerg...", truncate("énergie basse", 8))
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "55+", orDash("55+"))
}
