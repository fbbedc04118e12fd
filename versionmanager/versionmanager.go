// Package versionmanager talks to the platform version-manager service:
// node CRUD, metadata operations, and file upload/fetch with optional local
// caching. All calls go through the outbound proxy's platform surface.
package versionmanager

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dcwiz/appkit/config"
	"github.com/dcwiz/appkit/proxy"
)

// Client wraps the version-manager endpoints.
type Client struct {
	platform *proxy.Client
	baseURL  string
	cacheDir string
}

// New builds a Client. baseURL is the full version-manager URL; cacheDir,
// when non-empty, is created and used for locally cached node files.
func New(platform *proxy.Client, baseURL, cacheDir string) (*Client, error) {
	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create version-manager cache dir: %w", err)
		}
	}
	return &Client{
		platform: platform,
		baseURL:  strings.TrimRight(baseURL, "/"),
		cacheDir: cacheDir,
	}, nil
}

// FromConfig reads platform.version_manager_url and
// platform.version_manager_cache_path from configuration.
func FromConfig(cfg *config.Config, platform *proxy.Client) (*Client, error) {
	return New(platform,
		cfg.String("platform.version_manager_url", ""),
		cfg.String("platform.version_manager_cache_path", ""))
}

func (c *Client) url(parts ...string) string {
	return c.baseURL + "/" + strings.Join(parts, "/")
}

// ListNodes retrieves the nodes of a type. Filters are passed through as
// query parameters; empty values are dropped.
func (c *Client) ListNodes(ctx context.Context, nodeType string, filters map[string]string) (json.RawMessage, error) {
	params := map[string]string{
		"forest":         "false",
		"compress_group": "true",
	}
	for k, v := range filters {
		if v != "" {
			params[k] = v
		}
	}
	return c.platform.Get(ctx, proxy.SurfacePlatform, c.url(nodeType), proxy.WithQuery(params))
}

// CreateNode creates a node of the given type.
func (c *Client) CreateNode(ctx context.Context, nodeType string, body any) (json.RawMessage, error) {
	return c.platform.Post(ctx, proxy.SurfacePlatform, c.url(nodeType), proxy.WithJSON(body))
}

// SaveAsNode saves a new version of an existing node.
func (c *Client) SaveAsNode(ctx context.Context, nodeType, nodeID string, body any) (json.RawMessage, error) {
	return c.platform.Post(ctx, proxy.SurfacePlatform, c.url(nodeType, nodeID), proxy.WithJSON(body))
}

// GetMetadata fetches a node's metadata.
func (c *Client) GetMetadata(ctx context.Context, nodeType, nodeID string) (json.RawMessage, error) {
	return c.platform.Get(ctx, proxy.SurfacePlatform, c.url(nodeType, nodeID, "metadata"))
}

// PatchMetadata updates metadata keys on a node. The patch must be
// non-empty.
func (c *Client) PatchMetadata(ctx context.Context, nodeType, nodeID string, meta map[string]any) (json.RawMessage, error) {
	if len(meta) == 0 {
		return nil, fmt.Errorf("metadata patch for [%s]<%s> must be provided", nodeType, nodeID)
	}
	return c.platform.Request(ctx, proxy.SurfacePlatform, http.MethodPatch,
		c.url(nodeType, nodeID, "metadata"), proxy.WithJSON(meta))
}

// DeleteMetadata removes metadata keys from a node at a given modification
// time. At least one key is required.
func (c *Client) DeleteMetadata(ctx context.Context, nodeType, nodeID, modificationTime string, keys map[string]any) (json.RawMessage, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no keys specified for deletion for [%s]<%s>", nodeType, nodeID)
	}
	body := map[string]any{"modification_time": modificationTime}
	for k, v := range keys {
		body[k] = v
	}
	return c.platform.Delete(ctx, proxy.SurfacePlatform,
		c.url(nodeType, nodeID, "metadata"), proxy.WithJSON(body))
}

// DeleteNode deletes one node.
func (c *Client) DeleteNode(ctx context.Context, nodeType, nodeID string, skipDependants bool) (json.RawMessage, error) {
	return c.platform.Delete(ctx, proxy.SurfacePlatform, c.url(nodeType, nodeID),
		proxy.WithQuery(map[string]string{
			"dry_run":         "false",
			"skip_dependants": strconv.FormatBool(skipDependants),
		}))
}

// DeleteNodes deletes every node of a type matching the filters.
func (c *Client) DeleteNodes(ctx context.Context, nodeType string, skipDependants bool, filters map[string]any) (json.RawMessage, error) {
	return c.platform.Delete(ctx, proxy.SurfacePlatform, c.url(nodeType, "multple_nodes"),
		proxy.WithQuery(map[string]string{
			"dry_run":         "false",
			"skip_dependants": strconv.FormatBool(skipDependants),
		}),
		proxy.WithJSON(filters))
}

// UploadFile stores file content on a node. Non-JSON content is
// base64-encoded for transport; the format defaults to the file extension.
func (c *Client) UploadFile(ctx context.Context, nodeType, nodeID, filePath, modificationTime, content, fileFormat string) (json.RawMessage, error) {
	ext := strings.ToLower(path.Ext(filePath))
	if ext != ".json" {
		content = base64.StdEncoding.EncodeToString([]byte(content))
	}
	if fileFormat == "" {
		fileFormat = strings.TrimPrefix(ext, ".")
	}
	return c.platform.Put(ctx, proxy.SurfacePlatform, c.url(nodeType, nodeID, "files", filePath),
		proxy.WithJSON(map[string]any{
			"format":            fileFormat,
			"content":           content,
			"modification_time": modificationTime,
		}))
}

// GetNodeOptions controls which node files GetNode retrieves.
type GetNodeOptions struct {
	// FetchAllFiles lists the node's files and fetches every one as JSON,
	// overriding Files.
	FetchAllFiles bool
	// Files maps file paths to their formats ("json" or raw).
	Files map[string]string
	// CacheLocally downloads the files into the cache directory instead of
	// returning their contents.
	CacheLocally bool
}

// GetNode retrieves a node summary together with the contents of the
// requested files, fetched concurrently. Dotfiles are skipped.
func (c *Client) GetNode(ctx context.Context, nodeCls, nodeID string, opts GetNodeOptions) (map[string]any, error) {
	files := opts.Files
	if opts.FetchAllFiles {
		body, err := c.platform.Get(ctx, proxy.SurfacePlatform, c.url(nodeCls, nodeID, "files"))
		if err != nil {
			return nil, err
		}
		var available []string
		if err := json.Unmarshal(body, &available); err != nil {
			return nil, fmt.Errorf("decode file listing: %w", err)
		}
		files = map[string]string{}
		for _, p := range available {
			files[p] = "json"
		}
	}

	fileContents := map[string]any{}
	if opts.CacheLocally {
		if err := c.FetchFiles(ctx, nodeCls, nodeID, files); err != nil {
			return nil, err
		}
	} else if len(files) > 0 {
		specs := map[string]proxy.RequestSpec{}
		for p, format := range files {
			if strings.HasPrefix(p, ".") {
				continue
			}
			options := []proxy.Option{proxy.WithQuery(map[string]string{"format": format})}
			if format != "json" {
				options = append(options, proxy.WithRawBody())
			}
			specs[p] = proxy.RequestSpec{
				Method:  http.MethodGet,
				URL:     c.url(nodeCls, nodeID, "files", p),
				Options: options,
			}
		}
		bodies, err := c.platform.ParallelMap(ctx, proxy.SurfacePlatform, specs)
		if err != nil {
			return nil, err
		}
		for p, body := range bodies {
			if files[p] == "json" {
				var v any
				if err := json.Unmarshal(body, &v); err != nil {
					return nil, fmt.Errorf("decode file %s: %w", p, err)
				}
				if v != nil {
					fileContents[p] = v
				}
			} else {
				fileContents[p] = string(body)
			}
		}
	}

	summaryBody, err := c.platform.Get(ctx, proxy.SurfacePlatform, c.url(nodeCls, nodeID))
	if err != nil {
		return nil, err
	}
	var summary map[string]any
	if err := json.Unmarshal(summaryBody, &summary); err != nil {
		return nil, fmt.Errorf("decode node summary: %w", err)
	}
	summary["file_contents"] = fileContents
	return summary, nil
}

// FetchFiles downloads the node files that are not yet cached locally.
func (c *Client) FetchFiles(ctx context.Context, nodeCls, nodeID string, files map[string]string) error {
	if c.cacheDir == "" {
		return fmt.Errorf("no version-manager cache directory configured")
	}
	if err := os.MkdirAll(c.CachePath(nodeID, ""), 0o755); err != nil {
		return fmt.Errorf("create node cache dir: %w", err)
	}

	specs := map[string]proxy.RequestSpec{}
	for p := range files {
		if c.IsCached(nodeID, p) {
			continue
		}
		specs[p] = proxy.RequestSpec{
			Method:  http.MethodGet,
			URL:     c.url(nodeCls, nodeID, "files", p),
			Options: []proxy.Option{proxy.WithRawBody()},
		}
	}
	if len(specs) == 0 {
		return nil
	}

	bodies, err := c.platform.ParallelMap(ctx, proxy.SurfacePlatform, specs)
	if err != nil {
		return err
	}
	for p, body := range bodies {
		dest := c.CachePath(nodeID, p)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create cache dir for %s: %w", p, err)
		}
		if err := os.WriteFile(dest, body, 0o644); err != nil {
			return fmt.Errorf("write cached file %s: %w", p, err)
		}
	}
	return nil
}

// CachePath returns the local cache location of a node file.
func (c *Client) CachePath(nodeID, filePath string) string {
	return filepath.Join(c.cacheDir, nodeID, filePath)
}

// IsCached reports whether a node file is already cached locally.
func (c *Client) IsCached(nodeID, filePath string) bool {
	_, err := os.Stat(c.CachePath(nodeID, filePath))
	return err == nil
}
