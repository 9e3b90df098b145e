package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

func TestClassify_LegalText(t *testing.T) {
	c := New(nil)

	in, err := c.Classify(context.Background(), "1974:152 2 kap. 1 §")

	require.NoError(t, err)
	assert.Equal(t, ragtypes.IntentLegalText, in)
}

func TestClassify_ParliamentTrace(t *testing.T) {
	c := New(nil)

	in, err := c.Classify(context.Background(), "Vilken proposition låg till grund för lagändringen?")

	require.NoError(t, err)
	assert.Equal(t, ragtypes.IntentParliamentTrace, in)
}

func TestClassify_Smalltalk(t *testing.T) {
	c := New(nil)

	in, err := c.Classify(context.Background(), "Hej!")

	require.NoError(t, err)
	assert.Equal(t, ragtypes.IntentSmalltalk, in)
}

func TestClassify_NoLLM_FallsBackToUnknown(t *testing.T) {
	c := New(nil)

	in, err := c.Classify(context.Background(), "Berätta mer om det här området i allmänhet")

	require.NoError(t, err)
	assert.Equal(t, ragtypes.IntentUnknown, in)
}
