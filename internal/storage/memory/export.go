// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harborlab/shipsim/internal/worldmap"
	"github.com/harborlab/shipsim/pkg/core"
)

// RunExport is the root JSON structure handed to the viewer.
type RunExport struct {
	ID           string           `json:"id"`
	Label        string           `json:"label"`
	StartedAt    string           `json:"startedAt"`
	Seed         int64            `json:"seed"`
	Config       core.SwarmConfig `json:"config"`
	MapSize      int              `json:"mapSize"`
	Map          [][]int          `json:"map,omitempty"`
	Islands      [][2]float64     `json:"islands,omitempty"`
	Dt           float64          `json:"dt"`
	Shape        [3]int           `json:"shape"` // snapshots, ships, 2
	Trajectories [][][2]float64   `json:"trajectories"`
	Destinations [][2]float64     `json:"destinations"`
	StartTimes   []float64        `json:"startTimes"`
	EndTimes     []*float64       `json:"endTimes"` // null for vessels that never arrived
	Events       []core.Event     `json:"events"`
}

func pair(v core.Vec2) [2]float64 {
	return [2]float64{v.X, v.Y}
}

func pairs(vs []core.Vec2) [][2]float64 {
	out := make([][2]float64, len(vs))
	for i, v := range vs {
		out[i] = pair(v)
	}
	return out
}

// trajectories unpacks the (snapshots × ships × 2) tensor of a record.
func trajectories(rec *core.SimulationRecord) [][][2]float64 {
	shape := rec.Shape()
	out := make([][][2]float64, shape[0])
	if shape[1] == 0 {
		for k := range out {
			out[k] = [][2]float64{}
		}
		return out
	}
	data := rec.Tensor().Data().([]float64)
	for k := range out {
		snap := make([][2]float64, shape[1])
		for i := range snap {
			at := (k*shape[1] + i) * 2
			snap[i] = [2]float64{data[at], data[at+1]}
		}
		out[k] = snap
	}
	return out
}

// buildExport flattens a run to plain arrays.
func buildExport(run *core.RunRecord) (RunExport, error) {
	rec := run.Record
	export := RunExport{
		ID:           run.ID,
		Label:        run.Label,
		StartedAt:    run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Seed:         run.Seed,
		Config:       run.Config,
		MapSize:      run.MapSize,
		Dt:           rec.Dt,
		Shape:        rec.Shape(),
		Trajectories: trajectories(rec),
		Destinations: pairs(rec.Destinations),
		Events:       rec.Events,
	}
	if export.Events == nil {
		export.Events = []core.Event{}
	}

	if len(run.MapCells) > 0 {
		grid, err := worldmap.FromCells(run.MapSize, run.MapCells)
		if err != nil {
			return RunExport{}, fmt.Errorf("run %s map: %w", run.ID, err)
		}
		export.Map = grid.Rows()
	}
	if len(run.Islands) > 0 {
		export.Islands = pairs(run.Islands)
	}

	for i := 0; i < rec.Ships(); i++ {
		export.StartTimes = append(export.StartTimes, rec.StartTime(i))
		if end, ok := rec.EndTime(i); ok {
			export.EndTimes = append(export.EndTimes, &end)
		} else {
			export.EndTimes = append(export.EndTimes, nil)
		}
	}
	return export, nil
}

// exportFileName builds <label>_<timestamp>.json[.gz].
func (b *Backend) exportFileName(run *core.RunRecord) string {
	label := run.Label
	if label == "" {
		label = "run"
	}
	label = strings.ReplaceAll(label, " ", "_")
	label = strings.ReplaceAll(label, ":", "_")
	label = strings.ReplaceAll(label, string(filepath.Separator), "_")
	timestamp := run.StartedAt.Format("20060102_150405")

	if b.cfg.CompressOutput {
		return fmt.Sprintf("%s_%s.json.gz", label, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", label, timestamp)
}

// exportJSON writes the run to the output directory. Callers hold b.mu.
func (b *Backend) exportJSON(run *core.RunRecord) error {
	export, err := buildExport(run)
	if err != nil {
		return err
	}
	outputPath := filepath.Join(b.cfg.OutputDir, b.exportFileName(run))

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := encodeGzip(f, data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// encodeGzip writes data as gzipped JSON and flushes the gzip footer.
func encodeGzip(w io.Writer, data RunExport) error {
	gzWriter := gzip.NewWriter(w)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush gzip stream: %w", err)
	}
	return nil
}
