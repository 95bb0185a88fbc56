package orders

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"terranet/orders/models"
	"terranet/pricing"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	store, err := NewStore(db, t.TempDir())
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store
}

func sampleCheckout() CheckoutInput {
	return CheckoutInput{
		GrowerName:  "Jane Doe",
		GrowerEmail: "jane@example.com",
		FarmName:    "Doe Family Farm",
		Program:     pricing.ProgramRemoteOnly,
		AnnualTotal: pricing.MustParseAmount("105.00"),
		Fields: []CheckoutField{
			{
				ID:         "north",
				Name:       "North 40",
				Acres:      10,
				AnnualCost: pricing.MustParseAmount("70.00"),
				Geometry:   json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[0,0]]]}`),
			},
			{
				ID:         "south",
				Acres:      5,
				AnnualCost: pricing.MustParseAmount("35.00"),
			},
		},
	}
}

func TestCreateOrderWritesExports(t *testing.T) {
	store := setupStore(t)

	order, err := store.CreateOrder(context.Background(), sampleCheckout())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != models.StatusQuoted {
		t.Fatalf("status = %s, want %s", order.Status, models.StatusQuoted)
	}
	if order.FieldCount != 2 || order.TotalAcres != 15 {
		t.Fatalf("summary = %d fields %.1f acres, want 2 fields 15.0 acres", order.FieldCount, order.TotalAcres)
	}

	dir := store.OrderDir(order.QuoteID)
	for _, name := range []string{ExportClientCSV, ExportFieldsCSV, ExportGeoJSON} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing export %s: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, ExportGeoJSON))
	if err != nil {
		t.Fatalf("read geojson: %v", err)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil {
		t.Fatalf("parse geojson: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("geojson = %s with %d features, want FeatureCollection with 1", fc.Type, len(fc.Features))
	}
	if got := fc.Features[0].Properties["field_id"]; got != "north" {
		t.Fatalf("feature field_id = %v, want north", got)
	}
}

func TestCreateOrderRequiresFields(t *testing.T) {
	store := setupStore(t)
	in := sampleCheckout()
	in.Fields = nil

	_, err := store.CreateOrder(context.Background(), in)
	var ve *pricing.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateOrderRejectsMalformedGeometry(t *testing.T) {
	store := setupStore(t)
	in := sampleCheckout()
	in.Fields[0].Geometry = json.RawMessage(`"not an object"`)

	_, err := store.CreateOrder(context.Background(), in)
	var ve *pricing.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	list, err := store.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("rejected checkout left %d order rows behind", len(list))
	}
}

func TestStatusWorkflow(t *testing.T) {
	store := setupStore(t)
	order, err := store.CreateOrder(context.Background(), sampleCheckout())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	updated, err := store.UpdateStatus(context.Background(), order.QuoteID, models.StatusAwaitingPayment)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != models.StatusAwaitingPayment {
		t.Fatalf("status = %s, want %s", updated.Status, models.StatusAwaitingPayment)
	}

	if _, err := store.UpdateStatus(context.Background(), order.QuoteID, models.OrderStatus("Shipped")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	history, err := store.StatusHistory(context.Background(), order.QuoteID)
	if err != nil {
		t.Fatalf("status history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 status changes got %d", len(history))
	}
	if history[1].From != models.StatusQuoted || history[1].To != models.StatusAwaitingPayment {
		t.Fatalf("unexpected transition %s -> %s", history[1].From, history[1].To)
	}
}

func TestDeleteOrder(t *testing.T) {
	store := setupStore(t)
	order, err := store.CreateOrder(context.Background(), sampleCheckout())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := store.DeleteOrder(context.Background(), order.QuoteID); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if _, err := store.GetOrder(context.Background(), order.QuoteID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := os.Stat(store.OrderDir(order.QuoteID)); !os.IsNotExist(err) {
		t.Fatalf("export dir should be removed, stat err = %v", err)
	}
}

func TestBuildPacket(t *testing.T) {
	store := setupStore(t)
	order, err := store.CreateOrder(context.Background(), sampleCheckout())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	zipPath, err := store.BuildPacket(context.Background(), order.QuoteID)
	if err != nil {
		t.Fatalf("build packet: %v", err)
	}
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open packet: %v", err)
	}
	defer reader.Close()

	names := map[string]bool{}
	for _, f := range reader.File {
		names[f.Name] = true
	}
	for _, want := range []string{ExportClientCSV, ExportFieldsCSV, ExportGeoJSON, ExportSummary, "fields_geojson/north.geojson"} {
		if !names[want] {
			t.Fatalf("packet missing %s (have %v)", want, names)
		}
	}
}

func TestValidExportFile(t *testing.T) {
	for _, name := range []string{ExportClientCSV, ExportFieldsCSV, ExportGeoJSON, ExportSummary, ExportPacket} {
		if !ValidExportFile(name) {
			t.Fatalf("%s should be downloadable", name)
		}
	}
	for _, name := range []string{"status.txt", "../secrets", "fields_geojson"} {
		if ValidExportFile(name) {
			t.Fatalf("%s should not be downloadable", name)
		}
	}
}
