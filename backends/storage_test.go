package backends

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebogdum/datarepo/metadata"
)

type staticLister struct {
	entries []*metadata.Entry
	err     error
}

func (l *staticLister) ListDirectory(ctx context.Context, remotePath string) ([]*metadata.Entry, error) {
	return l.entries, l.err
}

func TestIsDirectoryByListing(t *testing.T) {
	ctx := context.Background()

	p, err := IsDirectoryByListing(ctx, &staticLister{entries: []*metadata.Entry{{Name: "videos/a.mp4"}}}, "videos")
	require.NoError(t, err)
	assert.Equal(t, metadata.Present, p)

	p, err = IsDirectoryByListing(ctx, &staticLister{}, "videos")
	require.NoError(t, err)
	assert.Equal(t, metadata.Absent, p)

	cause := errors.New("connection reset")
	p, err = IsDirectoryByListing(ctx, &staticLister{err: cause}, "videos")
	assert.Equal(t, metadata.Indeterminate, p)
	assert.True(t, errors.Is(err, cause))
}
