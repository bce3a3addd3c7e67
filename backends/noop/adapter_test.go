package noop

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ebogdum/datarepo/metadata"
)

func TestNoopAdapterRefusesEverything(t *testing.T) {
	ctx := context.Background()
	n := NewNoopAdapter()

	assert.Equal(t, "noop", n.Type())
	assert.NoError(t, n.Close())

	errs := []error{
		n.StoreFile(ctx, "a.mp4", "a.mp4", nil),
		n.StoreDirectory(ctx, "videos", "videos", nil),
		n.RetrieveFile(ctx, "a.mp4", "a.mp4"),
		n.RetrieveDirectory(ctx, "videos", "videos"),
		n.CreateDirectory(ctx, "videos"),
		n.DeleteFile(ctx, "a.mp4"),
		n.DeleteDirectory(ctx, "videos"),
	}
	_, err := n.ListDirectory(ctx, "videos")
	errs = append(errs, err)
	_, err = n.OpenObject(ctx, "a.mp4")
	errs = append(errs, err)
	_, err = n.ObjectURL(ctx, "a.mp4", 0)
	errs = append(errs, err)
	_, err = n.EntryPath("a.mp4")
	errs = append(errs, err)

	p, err := n.IsDirectory(ctx, "videos")
	assert.Equal(t, metadata.Indeterminate, p)
	errs = append(errs, err)

	for _, err := range errs {
		assert.True(t, errors.Is(err, metadata.ErrConfiguration), err)
	}
}
