package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MaxResourceSize is the maximum image file size served as a resource (10MB).
const MaxResourceSize = 10 * 1024 * 1024

// visualResourceScheme is the URI scheme get_visuals results use to point
// back at RegisterVisualResources-registered MCP resources.
const visualResourceScheme = "image://"

// RegisterVisualResources loads every visual in the corpus and registers it
// as an MCP resource, so a client can fetch the underlying image file by
// URI instead of just its path. Call once after the server is constructed.
func (s *Server) RegisterVisualResources(ctx context.Context) error {
	visuals, err := s.visuals.FindAll(ctx, 0)
	if err != nil {
		return fmt.Errorf("list visuals: %w", err)
	}

	for _, v := range visuals {
		s.registerVisualResource(v.ID, v.ImagePath, v.CatalogTitle)
	}

	s.logger.Info("registered visual resources", "count", len(visuals))
	return nil
}

func (s *Server) registerVisualResource(id uint32, imagePath, catalogTitle string) {
	uri := visualResourceURI(id)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        filepath.Base(imagePath),
			URI:         uri,
			Description: fmt.Sprintf("visual from %s", catalogTitle),
			MIMEType:    MimeTypeForPath(imagePath),
		},
		s.makeVisualHandler(id),
	)
}

func (s *Server) makeVisualHandler(id uint32) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.handleReadVisualResource(ctx, id)
	}
}

// handleReadVisualResource reads an image file from disk, scoped under
// imagesRoot, with the same path-traversal and size checks the teacher
// applies to indexed source files.
func (s *Server) handleReadVisualResource(ctx context.Context, id uint32) (*mcp.ReadResourceResult, error) {
	uri := visualResourceURI(id)

	visuals, err := s.visuals.FindByIDs(ctx, []uint32{id})
	if err != nil {
		return nil, MapError(err)
	}
	if len(visuals) == 0 {
		return nil, NewResourceNotFoundError(uri)
	}
	v := visuals[0]

	fullPath, err := s.resolveImagePath(v.ImagePath)
	if err != nil {
		return nil, NewInvalidParamsError(err.Error())
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewResourceNotFoundError(uri)
		}
		return nil, MapError(err)
	}
	if info.Size() > MaxResourceSize {
		return nil, NewInvalidParamsError(fmt.Sprintf("image too large: %d bytes (max %d)", info.Size(), MaxResourceSize))
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: MimeTypeForPath(v.ImagePath),
				Blob:     content,
			},
		},
	}, nil
}

// resolveImagePath joins a visual's stored relative path onto imagesRoot and
// rejects anything that escapes it.
func (s *Server) resolveImagePath(relativePath string) (string, error) {
	if relativePath == "" || filepath.IsAbs(relativePath) {
		return "", fmt.Errorf("invalid image path: %s", relativePath)
	}
	cleaned := filepath.Clean(relativePath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid image path: %s", relativePath)
	}
	return filepath.Join(s.imagesRoot, cleaned), nil
}

func visualResourceURI(id uint32) string {
	return visualResourceScheme + strconv.FormatUint(uint64(id), 10)
}

// visualIDFromURI parses an "image://<id>" resource URI back to its id.
func visualIDFromURI(uri string) (uint32, bool) {
	if !strings.HasPrefix(uri, visualResourceScheme) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(uri, visualResourceScheme), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
