package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatasetType(t *testing.T) {
	dt, err := ParseDatasetType("raw")
	require.NoError(t, err)
	assert.Equal(t, Raw, dt)
	assert.False(t, dt.Derivative())
	assert.False(t, dt.Processed())

	dt, err = ParseDatasetType("mriqc")
	require.NoError(t, err)
	assert.True(t, dt.Derivative())
	assert.False(t, dt.Processed())

	dt, err = ParseDatasetType("fmriprep")
	require.NoError(t, err)
	assert.True(t, dt.Derivative())
	assert.True(t, dt.Processed())
}

func TestParseDatasetType_Unsupported(t *testing.T) {
	_, err := ParseDatasetType("foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"foo" is not supported`)
}

func TestParseDatasetTypes_PreservesOrder(t *testing.T) {
	dts, err := ParseDatasetTypes([]string{"mriqc", "raw"})
	require.NoError(t, err)
	require.Len(t, dts, 2)
	assert.Equal(t, "mriqc", dts[0].String())
	assert.Equal(t, "raw", dts[1].String())
}

func TestSessionNone(t *testing.T) {
	assert.True(t, NoSession.None())
	assert.False(t, Session("ses-preop").None())
}

func TestIsKnownDatatype(t *testing.T) {
	assert.True(t, IsKnownDatatype("anat"))
	assert.True(t, IsKnownDatatype("func"))
	assert.False(t, IsKnownDatatype("bold"))
}
