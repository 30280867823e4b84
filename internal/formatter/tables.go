package formatter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/musix/internal/models"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// SongsTable writes one row per song. offset numbers the rows when printing a later page.
func SongsTable(w io.Writer, songs []models.Song, offset int) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "ID", "Title", "Artist", "Album", "Length"})
	for i, s := range songs {
		t.AppendRow(table.Row{offset + i + 1, s.ID, s.Title, s.Artist, s.Album, s.DurationDisplay()})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 40},
		{Number: 4, WidthMax: 30},
		{Number: 5, WidthMax: 30},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
}

// PageFooter writes "page x of y (n total)" below a list.
func PageFooter[T any](w io.Writer, p models.Page[T]) {
	fmt.Fprintf(w, "page %d of %d (%d total)\n", p.CurrentPage, max(p.LastPage, 1), p.Total)
	if next := p.NextPage(); next > 0 {
		fmt.Fprintln(w, text.FgHiBlack.Sprint("next: --page "+strconv.Itoa(next)))
	}
}

// PlaylistsTable writes one row per playlist.
func PlaylistsTable(w io.Writer, playlists []models.Playlist) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Title", "Cover", "Updated"})
	for _, p := range playlists {
		cover := p.Cover
		if cover == "" {
			cover = text.FgHiBlack.Sprint("default")
		}
		t.AppendRow(table.Row{p.ID, p.Title, cover, p.UpdatedAt})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 40}})
	t.Render()
}

// PlaylistDetailTable writes a playlist header line followed by its songs.
func PlaylistDetailTable(w io.Writer, detail models.PlaylistDetail) {
	fmt.Fprintf(w, "%s %s\n", text.Bold.Sprint(detail.Title), text.FgHiBlack.Sprintf("#%d", detail.ID))
	if total := totalDuration(detail.Songs); total > 0 {
		fmt.Fprintf(w, "%d songs, %s\n", len(detail.Songs), models.FormatDuration(total))
	}
	SongsTable(w, detail.Songs, 0)
}

// SessionsTable writes the stored sessions with their validity at now.
func SessionsTable(w io.Writer, sessions []models.Session, now time.Time) {
	t := newTable(w)
	t.AppendHeader(table.Row{"API", "User", "Status", "Expires"})
	for _, s := range sessions {
		status := text.FgGreen.Sprint("valid")
		if !s.Valid(now) {
			status = text.FgHiRed.Sprint("expired")
		}
		expires := "never"
		if s.ExpiresAt != nil {
			expires = s.ExpiresAt.Local().Format(time.DateTime)
		}
		t.AppendRow(table.Row{s.BaseURL, s.Username, status, expires})
	}
	t.Render()
}

// DownloadsTable writes the recorded downloads.
func DownloadsTable(w io.Writer, downloads []models.Download) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Song", "Title", "Artist", "Size", "Path", "Saved"})
	for _, d := range downloads {
		t.AppendRow(table.Row{d.SongID, d.Title, d.Artist, FormatSize(d.SizeBytes), d.Path, d.CreatedAt.Local().Format(time.DateTime)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 40}, {Number: 5, WidthMax: 60}})
	t.Render()
}

// FormatSize renders a byte count with binary units.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
