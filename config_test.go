// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racingmars/tn3270/internal/negotiator"
)

func TestDefaultConfigValues(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "037", c.CodePage)
	assert.Equal(t, "default", c.EBCDICCompat)
	assert.Equal(t, ForceAuto, c.ForceMode)
	assert.Equal(t, NegotiationStrict, c.NegotiationMode)
	assert.Equal(t, 10, c.ConnectTimeoutSeconds)
	assert.Equal(t, 10, c.NegotiationTimeoutSeconds)
	assert.Equal(t, 30, c.ReadTimeoutSeconds)
	assert.Equal(t, 1<<20, c.PrinterMaxBufferBytes)
	assert.Equal(t, 16, c.PrinterJobRingSize)
	assert.Equal(t, 0, c.Rows)
	assert.Equal(t, 0, c.Cols)
	assert.False(t, c.AllowFallback)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	r := strings.NewReader("rows: 43\ncols: 80\nforce_mode: tn3270e\n")
	c, err := LoadConfig(r)
	require.NoError(t, err)

	assert.Equal(t, 43, c.Rows)
	assert.Equal(t, 80, c.Cols)
	assert.Equal(t, ForceTN3270E, c.ForceMode)
	// untouched keys keep their default values
	assert.Equal(t, "037", c.CodePage)
	assert.Equal(t, 10, c.ConnectTimeoutSeconds)
	assert.Equal(t, NegotiationStrict, c.NegotiationMode)
}

func TestLoadConfigEmptyDocumentReturnsDefaults(t *testing.T) {
	c, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestLoadConfigInvalidYAMLIsError(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("rows: [this is not\n  a valid document"))
	require.Error(t, err)
}

func TestConfigTimeoutHelpersConvertSecondsToDuration(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 10*time.Second, c.connectTimeout())
	assert.Equal(t, 10*time.Second, c.negotiationTimeout())
	assert.Equal(t, 30*time.Second, c.readTimeout())
}

func TestConfigEbcdicCompatSelection(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, CompatDefault, c.ebcdicCompat())

	c.EBCDICCompat = "p3270"
	assert.Equal(t, CompatP3270, c.ebcdicCompat())

	c.EBCDICCompat = "something-else"
	assert.Equal(t, CompatDefault, c.ebcdicCompat())
}

func TestConfigCompletionModeSelection(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, negotiator.Strict, c.completionMode())

	c.NegotiationMode = NegotiationFlexible
	assert.Equal(t, negotiator.Flexible, c.completionMode())
}
