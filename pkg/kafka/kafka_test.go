package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	RunID    string `json:"run_id"`
	Postings int    `json:"postings"`
}

func TestJSONHandlerDecodes(t *testing.T) {
	var got sample
	h := JSONHandler(func(_ context.Context, s sample) error {
		got = s
		return nil
	})
	require.NoError(t, h(context.Background(), []byte("k"), []byte(`{"run_id":"r1","postings":42}`)))
	assert.Equal(t, sample{RunID: "r1", Postings: 42}, got)
}

func TestJSONHandlerRejectsGarbage(t *testing.T) {
	called := false
	h := JSONHandler(func(_ context.Context, s sample) error {
		called = true
		return nil
	})
	assert.Error(t, h(context.Background(), nil, []byte("not json")))
	assert.False(t, called)
}
