package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	th "github.com/desertthunder/spx/internal/testing"
)

func sampleEntries() []*models.JournalEntry {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	export := models.NewJournalEntry("run-1", models.OpExport, models.KindPlaylist, "Rock/Pop", "out/Rock_Pop.xspf", 3, models.StatusOK)
	export.SetID("id-1")
	export.SetSequence(1)
	export.SetCreatedAt(at)

	failed := models.NewJournalEntry("run-2", models.OpImport, models.KindSavedAlbums, "", "out/saved_albums.xspf", 100, models.StatusFailed)
	failed.SetID("id-2")
	failed.SetSequence(2)
	failed.SetError("catalog mutation failed: chunk 2/2")
	failed.SetCreatedAt(at.Add(time.Minute))

	skipped := models.NewJournalEntry("run-3", models.OpDelete, models.KindSavedShows, "", "", 0, models.StatusSkipped)
	skipped.SetID("id-3")
	skipped.SetSequence(3)
	skipped.SetCreatedAt(at.Add(2 * time.Minute))

	return []*models.JournalEntry{export, failed, skipped}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"", FormatText},
		{"text", FormatText},
		{"CSV", FormatCSV},
		{" json ", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteEntries(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		var buf strings.Builder
		if err := WriteEntries(&buf, FormatText, sampleEntries()); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}

		output := buf.String()
		lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines:\n%s", len(lines), output)
		}
		if !strings.HasPrefix(lines[0], "#") || !strings.Contains(lines[0], "STATUS") {
			t.Errorf("unexpected header: %s", lines[0])
		}

		for _, want := range []string{"Rock/Pop", "out/saved_albums.xspf", "saved shows", "catalog mutation failed: chunk 2/2", "export", "delete"} {
			if !strings.Contains(output, want) {
				t.Errorf("text output missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("Text Empty", func(t *testing.T) {
		var buf strings.Builder
		if err := WriteEntries(&buf, FormatText, nil); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}
		if buf.String() != "No journal entries.\n" {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})

	t.Run("CSV", func(t *testing.T) {
		var buf strings.Builder
		if err := WriteEntries(&buf, FormatCSV, sampleEntries()); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected 4 records, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "Sequence,Run,Time,Operation,Kind,Name,Path,Count,Status,Error" {
			t.Errorf("unexpected headers: %v", records[0])
		}

		row := records[2]
		if row[0] != "2" || row[1] != "run-2" || row[2] != "2025-03-04T05:07:07Z" {
			t.Errorf("unexpected leading columns: %v", row)
		}
		if row[4] != "saved_albums" || row[7] != "100" || row[8] != "failed" || row[9] != "catalog mutation failed: chunk 2/2" {
			t.Errorf("unexpected trailing columns: %v", row)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		var buf strings.Builder
		if err := WriteEntries(&buf, FormatJSON, sampleEntries()); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal([]byte(buf.String()), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(decoded) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(decoded))
		}
		if decoded[0]["name"] != "Rock/Pop" || decoded[0]["status"] != "ok" {
			t.Errorf("unexpected first entry: %v", decoded[0])
		}
		if _, ok := decoded[2]["error"]; ok {
			t.Error("empty error should be omitted")
		}
		if decoded[1]["created_at"] != "2025-03-04T05:07:07Z" {
			t.Errorf("unexpected timestamp: %v", decoded[1]["created_at"])
		}
	})

	t.Run("JSON Empty", func(t *testing.T) {
		var buf strings.Builder
		if err := WriteEntries(&buf, FormatJSON, nil); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("expected empty array, got %q", buf.String())
		}
	})

	t.Run("Write Errors", func(t *testing.T) {
		for _, format := range []Format{FormatCSV, FormatJSON} {
			if err := WriteEntries(&th.FWriter{}, format, sampleEntries()); err == nil {
				t.Errorf("%s: expected error from failing writer", format)
			}
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		var buf strings.Builder
		if err := WriteEntries(&buf, Format("xml"), sampleEntries()); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
