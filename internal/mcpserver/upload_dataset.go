package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lineagemap/internal/checksum"
	"github.com/starford/lineagemap/internal/storage"
)

const maxDatasetSize = 50 << 20 // 50 MB

var parquetMagic = []byte("PAR1")

type uploadResult struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Format   string `json:"format"`
	Size     int    `json:"size"`
	Checksum string `json:"checksum"`
}

func (s *Server) uploadDataset(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := storage.FormatOf(path)
	if format == "" {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported dataset extension: %s (allowed: csv, yaml, yml, json, parquet)", path)), nil
	}

	content := req.GetString("content", "")
	rawURL := req.GetString("url", "")
	var data []byte
	switch {
	case content != "" && rawURL != "":
		return mcp.NewToolResultError("give either content or url, not both"), nil
	case content != "":
		data = []byte(content)
	case strings.HasPrefix(rawURL, "data:"):
		data, err = decodeDataURI(rawURL)
	case rawURL != "":
		data, err = fetchHTTP(rawURL)
	default:
		return mcp.NewToolResultError("content or url is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxDatasetSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxDatasetSize)), nil
	}
	if err := validateContent(data, format); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !req.GetBool("overwrite", false) {
		if _, readErr := s.files.Read(path); readErr == nil {
			return mcp.NewToolResultError(fmt.Sprintf("dataset already exists: %s (set overwrite to replace it)", path)), nil
		}
	}
	if err := s.files.Write(path, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save dataset: %v", err)), nil
	}

	out, _ := json.Marshal(uploadResult{
		Path:     path,
		Name:     storage.DatasetName(path),
		Format:   format,
		Size:     len(data),
		Checksum: checksum.Sum(data),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	resp, err := client.Get(rawURL) //nolint:noctx
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxDatasetSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", maxDatasetSize)
	}
	return data, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// validateContent checks that data plausibly matches format.
func validateContent(data []byte, format string) error {
	if len(data) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	switch format {
	case storage.FormatParquet:
		if len(data) < 8 || !bytes.HasPrefix(data, parquetMagic) || !bytes.HasSuffix(data, parquetMagic) {
			return fmt.Errorf("content is not a parquet file (missing PAR1 magic)")
		}
	case storage.FormatJSON:
		if !json.Valid(data) {
			return fmt.Errorf("content is not valid JSON")
		}
	default:
		if bytes.IndexByte(data, 0) >= 0 {
			return fmt.Errorf("content is binary, expected %s text", format)
		}
	}
	return nil
}
