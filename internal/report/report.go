// Package report exports the item states of a batch run.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/autolink/internal/model"
)

// Row is one exported item.
type Row struct {
	SourceID     string `json:"source_id" yaml:"source_id"`
	Title        string `json:"title" yaml:"title"`
	Status       string `json:"status" yaml:"status"`
	TheTVDBID    string `json:"thetvdb_id,omitempty" yaml:"thetvdb_id,omitempty"`
	TheTVDBTitle string `json:"thetvdb_title,omitempty" yaml:"thetvdb_title,omitempty"`
	Season       *int   `json:"season,omitempty" yaml:"season,omitempty"`
	Label        string `json:"label,omitempty" yaml:"label,omitempty"`
	Query        string `json:"query,omitempty" yaml:"query,omitempty"`
	Message      string `json:"message" yaml:"message"`
}

// Summary holds the run counters.
type Summary struct {
	Total     int  `json:"total" yaml:"total"`
	Processed int  `json:"processed" yaml:"processed"`
	Success   int  `json:"success" yaml:"success"`
	Failed    int  `json:"failed" yaml:"failed"`
	Linked    int  `json:"already_linked" yaml:"already_linked"`
	Cancelled bool `json:"cancelled" yaml:"cancelled"`
}

// Report is the document written to disk.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	Season      model.SeasonKey `json:"season,omitempty" yaml:"season,omitempty"`
	Summary     Summary         `json:"summary" yaml:"summary"`
	Items       []Row           `json:"items" yaml:"items"`
}

// Build assembles a report from final item states and progress.
func Build(season model.SeasonKey, items []model.BatchItemState, snap model.ProgressSnapshot) Report {
	r := Report{
		GeneratedAt: time.Now().UTC(),
		Season:      season,
		Summary: Summary{
			Total:     snap.Total,
			Processed: snap.Processed,
			Success:   snap.SuccessCount,
			Failed:    snap.FailCount,
			Cancelled: snap.Cancelled,
		},
		Items: make([]Row, 0, len(items)),
	}
	for _, it := range items {
		if it.Status == model.ItemAlreadyLinked {
			r.Summary.Linked++
		}
		r.Items = append(r.Items, toRow(it))
	}
	return r
}

func toRow(it model.BatchItemState) Row {
	row := Row{
		SourceID: it.SourceID,
		Title:    it.Title,
		Status:   string(it.Status),
		Message:  it.Message,
	}
	if m := it.Match; m != nil {
		row.TheTVDBID = m.ID
		row.TheTVDBTitle = m.Title
		season := m.Season
		row.Season = &season
		row.Label = m.Label
		row.Query = m.Query
	}
	return row
}

// Write saves r to path in the format named by its extension: .json, .yaml,
// .yml or .xlsx.
func Write(path string, r Report) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return eris.Wrap(err, "report: marshal json")
		}
		return writeFile(path, data)
	case ".yaml", ".yml":
		data, err := yaml.Marshal(r)
		if err != nil {
			return eris.Wrap(err, "report: marshal yaml")
		}
		return writeFile(path, data)
	case ".xlsx":
		return writeXLSX(path, r)
	default:
		return eris.Errorf("report: unsupported format %q (want .json, .yaml or .xlsx)", ext)
	}
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

var itemHeader = []string{"Source ID", "Title", "Status", "TVDB ID", "TVDB Title", "Season", "Matched Via", "Query", "Message"}

func writeXLSX(path string, r Report) error {
	f := xlsx.NewFile()

	items, err := f.AddSheet("Items")
	if err != nil {
		return eris.Wrap(err, "report: add items sheet")
	}
	addRow(items, itemHeader...)
	for _, row := range r.Items {
		season := ""
		if row.Season != nil {
			season = strconv.Itoa(*row.Season)
		}
		addRow(items, row.SourceID, row.Title, row.Status, row.TheTVDBID, row.TheTVDBTitle,
			season, row.Label, row.Query, row.Message)
	}

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addRow(summary, "Generated", r.GeneratedAt.Format(time.RFC3339))
	addRow(summary, "Season", string(r.Season))
	addRow(summary, "Total", strconv.Itoa(r.Summary.Total))
	addRow(summary, "Processed", strconv.Itoa(r.Summary.Processed))
	addRow(summary, "Success", strconv.Itoa(r.Summary.Success))
	addRow(summary, "Failed", strconv.Itoa(r.Summary.Failed))
	addRow(summary, "Already Linked", strconv.Itoa(r.Summary.Linked))
	addRow(summary, "Cancelled", strconv.FormatBool(r.Summary.Cancelled))

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
