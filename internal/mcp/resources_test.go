package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServer_ReadVisualResource_ServesFileFromImagesRoot(t *testing.T) {
	f := newTestFixture(t)

	imgDir := filepath.Join(f.server.imagesRoot, "1")
	require.NoError(t, os.MkdirAll(imgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(imgDir, "fig1.png"), []byte("fake-png-bytes"), 0o644))

	result, err := f.server.handleReadVisualResource(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	require.Equal(t, "image/png", result.Contents[0].MIMEType)
	require.Equal(t, []byte("fake-png-bytes"), result.Contents[0].Blob)
}

func TestServer_ReadVisualResource_UnknownIDIsNotFound(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.server.handleReadVisualResource(context.Background(), 99999)
	require.Error(t, err)
	require.Equal(t, ErrCodeMethodNotFound, err.(*MCPError).Code)
}

func TestServer_ReadVisualResource_MissingFileIsNotFound(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.server.handleReadVisualResource(context.Background(), 1000)
	require.Error(t, err)
	require.Equal(t, ErrCodeMethodNotFound, err.(*MCPError).Code)
}

func TestResolveImagePath_RejectsPathTraversal(t *testing.T) {
	s := &Server{imagesRoot: "/data/images"}

	_, err := s.resolveImagePath("../../etc/passwd")
	require.Error(t, err)

	_, err = s.resolveImagePath("/etc/passwd")
	require.Error(t, err)

	path, err := s.resolveImagePath("1/fig1.png")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/data/images", "1", "fig1.png"), path)
}

func TestVisualResourceURI_RoundTrips(t *testing.T) {
	uri := visualResourceURI(42)
	id, ok := visualIDFromURI(uri)
	require.True(t, ok)
	require.Equal(t, uint32(42), id)
}

func TestRegisterVisualResources_RegistersEveryVisual(t *testing.T) {
	f := newTestFixture(t)

	err := f.server.RegisterVisualResources(context.Background())
	require.NoError(t, err)
}
