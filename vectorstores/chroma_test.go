package vectorstores

import (
	"testing"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyChromaDimensions(t *testing.T) {
	stored := chromago.NewMetadata(chromago.NewIntAttribute("dimensions", 1536))

	require.NoError(t, verifyChromaDimensions(stored, "docs", 1536))

	// Binding an existing collection with a different-dimensionality
	// encoder must fail construction, not surface per-record later.
	err := verifyChromaDimensions(stored, "docs", 768)
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindDimensionMismatch, storeErr.Kind)
	assert.False(t, storeErr.Retryable())
}

func TestVerifyChromaDimensionsToleratesUnrecordedCollections(t *testing.T) {
	// Collections created outside this service carry no dimensions
	// attribute; binding them stays permissive.
	require.NoError(t, verifyChromaDimensions(chromago.NewMetadata(), "docs", 768))
	require.NoError(t, verifyChromaDimensions(nil, "docs", 768))
}
