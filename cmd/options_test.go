// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOptionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEngineOptions_Defaults(t *testing.T) {
	optionsFile = ""
	defer func() { optionsFile = "" }()

	opts, err := loadEngineOptions()
	require.NoError(t, err)

	assert.True(t, opts.SendBootMessages)
	assert.True(t, opts.SendDecodedPayload)
	assert.True(t, opts.DeDuplicateBursts)
	assert.True(t, opts.DecodeTextMessages)
	assert.False(t, opts.SendRawData)
	assert.False(t, opts.SendStatusMessages)
}

func TestLoadEngineOptions_Overrides(t *testing.T) {
	optionsFile = writeOptionsFile(t, `
sendRawData: true
sendBootMessages: false
useFahrenheitTemps: true
`)
	defer func() { optionsFile = "" }()

	opts, err := loadEngineOptions()
	require.NoError(t, err)

	assert.True(t, opts.SendRawData)
	assert.False(t, opts.SendBootMessages)
	assert.True(t, opts.UseFahrenheitTemps)

	// Untouched keys keep their defaults.
	assert.True(t, opts.DeDuplicateBursts)
	assert.True(t, opts.DecodeTextMessages)
}

func TestLoadEngineOptions_UnknownKeyRejected(t *testing.T) {
	optionsFile = writeOptionsFile(t, `
sendRawData: true
sendRawdata: true
`)
	defer func() { optionsFile = "" }()

	_, err := loadEngineOptions()
	assert.Error(t, err, "misspelled keys must fail instead of being ignored")
}

func TestLoadEngineOptions_MissingFile(t *testing.T) {
	optionsFile = filepath.Join(t.TempDir(), "nope.yaml")
	defer func() { optionsFile = "" }()

	_, err := loadEngineOptions()
	assert.Error(t, err)
}
