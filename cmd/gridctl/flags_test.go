package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateApplyOptions(t *testing.T) {
	require.ErrorContains(t, validateApplyOptions(applyOptions{}), "config file is required")
	require.ErrorContains(t, validateApplyOptions(applyOptions{ConfigPath: "missing.yaml"}), "does not exist")
	require.ErrorContains(t, validateApplyOptions(applyOptions{ConfigPath: t.TempDir()}), "is a directory")
	require.NoError(t, validateApplyOptions(applyOptions{ConfigPath: writeDocument(t, testDocument)}))
}
