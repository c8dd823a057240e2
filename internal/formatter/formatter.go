// package formatter renders playlist exports as CSV, Markdown, plain text, M3U and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/plstore/internal/models"
	"github.com/desertthunder/plstore/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
	M3U      Format = "m3u"
	JSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{CSV, Markdown, Text, M3U, JSON}

// ParseFormat resolves a format name, accepting "markdown" and "text" as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	case "m3u", "m3u8":
		return M3U, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, name)
}

// Render encodes export in format f.
func Render(export *models.PlaylistExport, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return ExportToCSV(export)
	case Markdown:
		return ExportToMarkdown(export)
	case Text:
		return ExportToText(export)
	case M3U:
		return ExportToM3U(export)
	case JSON:
		return ExportToJSON(export)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, MediaID, MediaURI, AddedAt
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "MediaID", "MediaURI", "AddedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range export.Items {
		record := []string{
			strconv.FormatInt(item.ID, 10),
			strconv.FormatInt(item.MediaID, 10),
			item.MediaURI,
			strconv.FormatInt(item.AddedAt, 10),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown format
func ExportToMarkdown(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "**Created**: %s\n", FormatTimestamp(export.Playlist.CreatedAt))
	fmt.Fprintf(&buf, "**Items**: %d\n\n", len(export.Items))

	buf.WriteString("## Items\n\n")
	for i, item := range export.Items {
		fmt.Fprintf(&buf, "%d. `%s` (media %d, added %s)\n", i+1, item.MediaURI, item.MediaID, FormatTimestamp(item.AddedAt))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "Items: %d\n\n", len(export.Items))

	for i, item := range export.Items {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, item.MediaURI)
	}

	return buf.Bytes(), nil
}

// ExportToM3U writes an extended M3U playlist of the item URIs in play order
func ExportToM3U(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	fmt.Fprintf(&buf, "#PLAYLIST:%s\n", export.Playlist.Name)
	for _, item := range export.Items {
		fmt.Fprintf(&buf, "#EXTINF:-1,%d\n%s\n", item.MediaID, item.MediaURI)
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the whole export, indented
func ExportToJSON(export *models.PlaylistExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return append(data, '\n'), nil
}

// FormatTimestamp renders epoch milliseconds as RFC 3339 in UTC
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// DefaultFilename builds "playlist_{id}.{format}" for exports without an explicit path
func DefaultFilename(export *models.PlaylistExport, f Format) string {
	return fmt.Sprintf("playlist_%d.%s", export.Playlist.ID, f)
}

// WriteExport renders export and writes it to path, defaulting to [DefaultFilename].
// Returns the path written.
func WriteExport(export *models.PlaylistExport, f Format, path string) (string, error) {
	if path == "" {
		path = DefaultFilename(export, f)
	}

	data, err := Render(export, f)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s export: %w", f, err)
	}
	return path, nil
}
