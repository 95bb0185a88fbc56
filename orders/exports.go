package orders

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"terranet/orders/models"
)

// Export filenames eligible for download. Anything else 404s at the
// gateway before the filesystem is consulted.
const (
	ExportClientCSV   = "client_info.csv"
	ExportFieldsCSV   = "fields.csv"
	ExportGeoJSON     = "fields.geojson"
	ExportSummary     = "summary.txt"
	ExportPacket      = "onboarding_packet.zip"
	geoJSONFeatureDir = "fields_geojson"
)

// ValidExportFile reports whether name is a downloadable export.
func ValidExportFile(name string) bool {
	switch name {
	case ExportClientCSV, ExportFieldsCSV, ExportGeoJSON, ExportSummary, ExportPacket:
		return true
	}
	return false
}

// AvailableExports lists the downloadable files currently present in the
// order directory, in allowlist order.
func (s *Store) AvailableExports(quoteID string) []string {
	dir := s.OrderDir(quoteID)
	var out []string
	for _, name := range []string{ExportClientCSV, ExportFieldsCSV, ExportGeoJSON, ExportSummary, ExportPacket} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			out = append(out, name)
		}
	}
	return out
}

// ExportPath resolves an allowlisted export file for an existing order.
// Missing orders and missing files both surface as ErrNotFound.
func (s *Store) ExportPath(ctx context.Context, quoteID, name string) (string, error) {
	if !ValidExportFile(name) {
		return "", ErrNotFound
	}
	order, err := s.GetOrder(ctx, quoteID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.OrderDir(order.QuoteID), name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

// writeExports materialises the order directory: client CSV, per-field CSV,
// and the combined GeoJSON built from the stored geometry passthrough.
func (s *Store) writeExports(order *models.Order) error {
	dir := s.OrderDir(order.QuoteID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create order dir: %w", err)
	}
	if err := s.writeClientCSV(dir, order); err != nil {
		return err
	}
	if err := s.writeFieldsCSV(dir, order); err != nil {
		return err
	}
	return s.writeFieldsGeoJSON(dir, order)
}

func (s *Store) writeClientCSV(dir string, order *models.Order) error {
	f, err := os.Create(filepath.Join(dir, ExportClientCSV))
	if err != nil {
		return fmt.Errorf("create %s: %w", ExportClientCSV, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"quote_id", "grower_name", "grower_email", "farm_name", "phone", "notes",
		"address1", "address2", "city", "state", "postal_code", "country",
		"program", "field_count", "total_acres", "annual_total",
	}
	row := []string{
		order.QuoteID, order.GrowerName, order.GrowerEmail, order.FarmName, order.Phone, order.Notes,
		order.Address1, order.Address2, order.City, order.State, order.PostalCode, order.Country,
		order.Program,
		strconv.Itoa(order.FieldCount),
		strconv.FormatFloat(order.TotalAcres, 'f', 2, 64),
		order.AnnualTotal.String(),
	}
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (s *Store) writeFieldsCSV(dir string, order *models.Order) error {
	f, err := os.Create(filepath.Join(dir, ExportFieldsCSV))
	if err != nil {
		return fmt.Errorf("create %s: %w", ExportFieldsCSV, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"quote_id", "field_id", "name", "acres", "crop_program", "notes",
		"annual_cost", "program", "grower_name",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, field := range order.Fields {
		row := []string{
			order.QuoteID,
			field.FieldRef,
			field.Name,
			strconv.FormatFloat(field.Acres, 'f', -1, 64),
			field.CropProgram,
			field.Notes,
			field.AnnualCost.String(),
			order.Program,
			order.GrowerName,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeFieldsGeoJSON writes the combined FeatureCollection plus one file
// per field. Geometry is a passthrough from the drawing UI: a submitted
// Feature is reused as-is, a bare geometry object is wrapped. Nothing is
// computed or validated here.
func (s *Store) writeFieldsGeoJSON(dir string, order *models.Order) error {
	featureDir := filepath.Join(dir, geoJSONFeatureDir)
	var features []map[string]any
	for _, field := range order.Fields {
		if field.Geometry == "" {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(field.Geometry), &raw); err != nil {
			return fmt.Errorf("field %s: stored geometry is not JSON: %w", field.FieldRef, err)
		}
		feature := raw
		if t, _ := raw["type"].(string); t != "Feature" {
			feature = map[string]any{"type": "Feature", "properties": map[string]any{}, "geometry": raw}
		}
		props, _ := feature["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		}
		props["field_id"] = field.FieldRef
		props["name"] = field.Name
		props["acres"] = field.Acres
		props["crop_program"] = field.CropProgram
		feature["properties"] = props
		features = append(features, feature)

		if err := os.MkdirAll(featureDir, 0o755); err != nil {
			return fmt.Errorf("create feature dir: %w", err)
		}
		single := map[string]any{"type": "FeatureCollection", "features": []map[string]any{feature}}
		if err := writeJSONFile(filepath.Join(featureDir, field.FieldRef+".geojson"), single); err != nil {
			return err
		}
	}
	if len(features) == 0 {
		return nil
	}
	combined := map[string]any{"type": "FeatureCollection", "features": features}
	return writeJSONFile(filepath.Join(dir, ExportGeoJSON), combined)
}

func writeJSONFile(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
