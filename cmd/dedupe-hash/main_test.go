package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seqrview.backend/internal/usecases"
)

func TestRun_Args(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run("secret", []string{"123412341234", " MH1220190001234 "}, strings.NewReader(""), &out))

	index := usecases.NewDedupeIndex("secret", nil)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, index.Hash("123412341234"), lines[0])
	assert.Equal(t, index.Hash("MH1220190001234"), lines[1])
	assert.NotContains(t, out.String(), "123412341234")
}

func TestRun_Stdin(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run("secret", nil, strings.NewReader("123412341234\n\n999988887777\n"), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], 64)
	assert.NotEqual(t, lines[0], lines[1])
}

func TestRun_SecretChangesHash(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, run("one", []string{"123412341234"}, nil, &a))
	require.NoError(t, run("two", []string{"123412341234"}, nil, &b))
	assert.NotEqual(t, a.String(), b.String())
}

func TestRun_MissingSecret(t *testing.T) {
	err := run("  ", []string{"123412341234"}, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, errNoSecret)
}
