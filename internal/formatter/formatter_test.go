package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/plstore/internal/models"
	"github.com/desertthunder/plstore/internal/shared"
	th "github.com/desertthunder/plstore/internal/testing"
)

func sampleExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{ID: 1, Name: "Road Trip", CreatedAt: 1000},
		Items: []models.PlaylistItem{
			{ID: 1, PlaylistID: 1, MediaID: 42, MediaURI: "content://media/42", AddedAt: 2000},
			{ID: 2, PlaylistID: 1, MediaID: 7, MediaURI: "content://media/7", AddedAt: 3000},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d lines: %q", len(lines), data)
		}
		if lines[0] != "ID,MediaID,MediaURI,AddedAt" {
			t.Errorf("CSV header = %q", lines[0])
		}
		if lines[1] != "1,42,content://media/42,2000" {
			t.Errorf("first row = %q", lines[1])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Road Trip",
			"**Items**: 2",
			"**Created**: 1970-01-01T00:00:01Z",
			"1. `content://media/42` (media 42, added 1970-01-01T00:00:02Z)",
			"2. `content://media/7`",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		want := "Playlist: Road Trip\nItems: 2\n\n1. content://media/42\n2. content://media/7\n"
		if string(data) != want {
			t.Errorf("ExportToText = %q, want %q", data, want)
		}
	})

	t.Run("ExportToM3U keeps play order", func(t *testing.T) {
		data, err := ExportToM3U(sampleExport())
		if err != nil {
			t.Fatalf("ExportToM3U failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "#EXTM3U\n#PLAYLIST:Road Trip\n") {
			t.Errorf("M3U header wrong: %q", output)
		}
		first := strings.Index(output, "content://media/42")
		second := strings.Index(output, "content://media/7")
		if first < 0 || second < 0 || first > second {
			t.Errorf("M3U entries out of order: %q", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		playlist, ok := decoded["playlist"].(map[string]any)
		if !ok || playlist["createdAt"] != float64(1000) {
			t.Errorf("playlist not encoded with camelCase fields: %v", decoded["playlist"])
		}
	})

	t.Run("empty playlist", func(t *testing.T) {
		export := &models.PlaylistExport{Playlist: models.Playlist{ID: 3, Name: "Empty"}}
		for _, f := range Formats {
			if _, err := Render(export, f); err != nil {
				t.Errorf("Render(%s) on empty playlist failed: %v", f, err)
			}
		}
	})
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		input string
		want  Format
	}{
		{input: "csv", want: CSV},
		{input: "Markdown", want: Markdown},
		{input: " text ", want: Text},
		{input: "m3u8", want: M3U},
		{input: "JSON", want: JSON},
	}

	for _, tt := range tc {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if err != nil {
				t.Fatalf("ParseFormat(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseFormat("xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "trip.m3u")

		written, err := WriteExport(sampleExport(), M3U, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != path {
			t.Errorf("WriteExport wrote %q, want %q", written, path)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "content://media/7") {
			t.Errorf("export file missing item, got %q", content)
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "dir", "out.csv")
		if _, err := WriteExport(sampleExport(), CSV, path); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})

	t.Run("default filename", func(t *testing.T) {
		if got := DefaultFilename(sampleExport(), Markdown); got != "playlist_1.md" {
			t.Errorf("DefaultFilename = %q", got)
		}
	})
}
