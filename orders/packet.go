package orders

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BuildPacket assembles onboarding_packet.zip for an order: the CSV and
// GeoJSON exports plus a freshly written summary.txt. Existing packets are
// replaced so the zip always reflects the current exports.
func (s *Store) BuildPacket(ctx context.Context, quoteID string) (string, error) {
	order, err := s.GetOrder(ctx, quoteID)
	if err != nil {
		return "", err
	}
	dir := s.OrderDir(order.QuoteID)

	summary := []string{
		"Quote ID: " + order.QuoteID,
		fmt.Sprintf("Grower: %s (%s)", order.GrowerName, order.GrowerEmail),
		"Farm: " + order.FarmName,
		"Program: " + order.Program,
		fmt.Sprintf("Fields: %d", order.FieldCount),
		fmt.Sprintf("Total Acres: %.2f", order.TotalAcres),
		"Annual Total: " + order.AnnualTotal.String(),
		"Status: " + string(order.Status),
		"",
		"Notes:",
		order.Notes,
		"",
		"Included files:",
		"- " + ExportClientCSV,
		"- " + ExportFieldsCSV,
		"- " + ExportGeoJSON,
		"- fields_geojson/*.geojson",
		"- " + ExportSummary,
	}
	if err := os.WriteFile(filepath.Join(dir, ExportSummary), []byte(strings.Join(summary, "\n")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	zipPath := filepath.Join(dir, ExportPacket)
	if err := os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove stale packet: %w", err)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create packet: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, name := range []string{ExportClientCSV, ExportFieldsCSV, ExportGeoJSON, ExportSummary} {
		if err := addFileToZip(zw, filepath.Join(dir, name), name); err != nil {
			zw.Close()
			return "", err
		}
	}
	featureDir := filepath.Join(dir, geoJSONFeatureDir)
	entries, err := os.ReadDir(featureDir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			src := filepath.Join(featureDir, entry.Name())
			if err := addFileToZip(zw, src, geoJSONFeatureDir+"/"+entry.Name()); err != nil {
				zw.Close()
				return "", err
			}
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finish packet: %w", err)
	}
	return zipPath, nil
}

// addFileToZip copies one export into the archive. Missing exports are
// skipped so a packet can still be built for orders without geometry.
func addFileToZip(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}
