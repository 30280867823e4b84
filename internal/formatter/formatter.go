// package formatter renders library data for the terminal (tables) and exports playlists to
// CSV, Markdown, JSON and plain text.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/shared"
)

// Formats lists the accepted export formats.
var Formats = []string{"json", "csv", "markdown", "txt"}

// ExportToCSV converts a playlist to CSV with columns: ID, Title, Artist, Album, Duration, Seconds
func ExportToCSV(detail models.PlaylistDetail) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "Seconds"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range detail.Songs {
		record := []string{
			strconv.FormatInt(song.ID, 10),
			song.Title,
			song.Artist,
			song.Album,
			song.DurationDisplay(),
			strconv.FormatFloat(song.Duration, 'f', -1, 64),
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

// ExportToMarkdown converts a playlist to Markdown with an optional cover image
func ExportToMarkdown(detail models.PlaylistDetail, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", detail.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Songs**: %d\n", len(detail.Songs))
	if total := totalDuration(detail.Songs); total > 0 {
		fmt.Fprintf(&buf, "**Length**: %s\n", models.FormatDuration(total))
	}
	if detail.UpdatedAt != "" {
		fmt.Fprintf(&buf, "**Updated**: %s\n", detail.UpdatedAt)
	}
	buf.WriteString("\n## Songs\n\n")

	for i, song := range detail.Songs {
		albumPart := ""
		if song.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", song.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, artistOrUnknown(song), song.Title, albumPart, song.DurationDisplay())
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text
func ExportToText(detail models.PlaylistDetail) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", detail.Title)
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(detail.Songs))

	for i, song := range detail.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, artistOrUnknown(song), song.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the playlist and its songs as indented JSON
func ExportToJSON(detail models.PlaylistDetail) ([]byte, error) {
	return json.MarshalIndent(detail, "", "  ")
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without songs)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return json.MarshalIndent(playlist, "", "  ")
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	SongsFile    string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV with an accompanying metadata JSON file.
//
// Defaults to playlist-{id} as the base filename & creates {base}_songs.csv and {base}_metadata.json
func WriteCSVExport(detail models.PlaylistDetail, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = defaultBase(detail.Playlist)
	}

	csvData, err := ExportToCSV(detail)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	songsFile := baseFilepath + "_songs.csv"
	if err := os.WriteFile(songsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(detail.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{SongsFile: songsFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown in a dedicated directory.
//
// Directory name defaults to playlist-{id}. coverURL is optional; when it points at a real
// cover (not the bundled default) the image is saved beside README.md. A failed image download
// only drops the image.
func WriteMarkdownExport(detail models.PlaylistDetail, outputDir, coverURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = defaultBase(detail.Playlist)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if strings.HasPrefix(coverURL, "http") {
		if imageData, err := DownloadImage(coverURL); err == nil {
			name := "cover" + imageExt(coverURL)
			coverImagePath := filepath.Join(outputDir, name)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err == nil {
				coverImageFilename = name
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(detail, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text.
//
// Defaults to playlist-{id}_songs.txt as the filename.
func WriteTextExport(detail models.PlaylistDetail, path string) (string, error) {
	if path == "" {
		path = defaultBase(detail.Playlist) + "_songs.txt"
	}

	textData, err := ExportToText(detail)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport writes the playlist JSON. Defaults to playlist-{id}.json as the filename.
func WriteJSONExport(detail models.PlaylistDetail, path string) (string, error) {
	if path == "" {
		path = defaultBase(detail.Playlist) + ".json"
	}

	data, err := ExportToJSON(detail)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// WriteExport writes detail in format under dir and returns the files created.
func WriteExport(format string, detail models.PlaylistDetail, dir, coverURL string) ([]string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	base := filepath.Join(dir, defaultBase(detail.Playlist))

	switch strings.ToLower(format) {
	case "json", "":
		path, err := WriteJSONExport(detail, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case "csv":
		res, err := WriteCSVExport(detail, base)
		if err != nil {
			return nil, err
		}
		return []string{res.SongsFile, res.MetadataFile}, nil
	case "markdown", "md":
		res, err := WriteMarkdownExport(detail, base, coverURL)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case "txt", "text":
		path, err := WriteTextExport(detail, base+"_songs.txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

func defaultBase(p models.Playlist) string {
	return fmt.Sprintf("playlist-%d", p.ID)
}

func imageExt(url string) string {
	ext := strings.ToLower(filepath.Ext(strings.SplitN(url, "?", 2)[0]))
	switch ext {
	case ".png", ".webp", ".gif", ".jpeg", ".jpg":
		return ext
	default:
		return ".jpg"
	}
}

func totalDuration(songs []models.Song) float64 {
	return lo.SumBy(songs, func(s models.Song) float64 { return s.Duration })
}

func artistOrUnknown(s models.Song) string {
	if s.Artist == "" {
		return "Unknown artist"
	}
	return s.Artist
}
