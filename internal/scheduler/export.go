package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/store"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// ExportJobName is the name the export job is registered under.
const ExportJobName = "export-tickets"

// TicketLister is the store call the exporter needs.
type TicketLister interface {
	ListTickets() ([]*protocol.Ticket, error)
}

// Exporter mirrors every stored ticket to <dir>/<slug>.json and removes
// files for tickets that no longer exist.
type Exporter struct {
	store  TicketLister
	dir    string
	logger *slog.Logger
}

// NewExporter creates an exporter writing into dir.
func NewExporter(st TicketLister, dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: st, dir: dir, logger: logger}
}

// Run performs one export pass. It matches JobFunc.
func (e *Exporter) Run(ctx context.Context) error {
	tickets, err := e.store.ListTickets()
	if err != nil {
		return fmt.Errorf("export: list: %w", err)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}

	keep := make(map[string]bool, len(tickets))
	for _, t := range tickets {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := store.Slug(t.Summary) + ".json"
		if keep[name] {
			continue // newer ticket with the same slug already written
		}
		keep[name] = true
		if err := writeJSONFile(filepath.Join(e.dir, name), t); err != nil {
			return fmt.Errorf("export: %s: %w", name, err)
		}
	}

	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return fmt.Errorf("export: read dir: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || keep[name] {
			continue
		}
		if err := os.Remove(filepath.Join(e.dir, name)); err != nil {
			e.logger.Warn("failed to remove stale export", "file", name, "error", err)
			continue
		}
		removed++
	}

	e.logger.Debug("tickets exported", "dir", e.dir, "written", len(keep), "removed", removed)
	return nil
}

// writeJSONFile writes v indented, via a temp file so readers never see a
// partial file.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
