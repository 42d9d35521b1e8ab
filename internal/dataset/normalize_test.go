package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rawUploadTable() *Table {
	t := NewTable([]string{"Crop", "Crop_Year", "Season", "State", "Area", "Production", "Annual_Rainfall", "Fertilizer", "Pesticide", "Yield"})
	t.Rows = append(t.Rows,
		Row{"Crop": "soja", "Crop_Year": 2015.0, "Season": "Kharif ", "State": "MT", "Area": 100.0, "Production": 500.0, "Annual_Rainfall": 800.0, "Fertilizer": 50.0, "Pesticide": 5.0, "Yield": 30.0},
		Row{"Crop": "milho", "Crop_Year": 2016.0, "Season": "Whole  Year", "State": "PR", "Area": 90.0, "Production": 450.0, "Annual_Rainfall": 750.0, "Fertilizer": "n/a", "Pesticide": nil, "Yield": 28.0},
		Row{"Crop": "trigo", "Crop_Year": "bad", "Season": "Estranha", "State": "GO", "Area": "80", "Production": 400.0, "Annual_Rainfall": 700.0, "Fertilizer": 40.0, "Pesticide": 4.0, "Yield": 26.0},
	)
	return t
}

func TestNormalizeCanonicalSchema(t *testing.T) {
	out := Normalize(rawUploadTable())

	wantCols := []string{"id", "crop", "year", "season", "state", "area", "production", "rain_mm", "fertilizer_kg_ha", "pesticide_kg_ha", "yield_kg_ha", "season_macro"}
	if diff := cmp.Diff(wantCols, out.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}

	// Surrogate ids are dense from 1.
	for i, row := range out.Rows {
		if id, _ := AsInt(row["id"]); id != int64(i+1) {
			t.Errorf("row %d id = %v, want %d", i, row["id"], i+1)
		}
	}

	// Season canon and macro derivation.
	if out.Rows[0]["season"] != "Chuvosa" || out.Rows[0]["season_macro"] != "Chuvosa" {
		t.Errorf("kharif row = %v/%v", out.Rows[0]["season"], out.Rows[0]["season_macro"])
	}
	if out.Rows[1]["season"] != "Ano todo" || out.Rows[1]["season_macro"] != "Anual" {
		t.Errorf("whole year row = %v/%v", out.Rows[1]["season"], out.Rows[1]["season_macro"])
	}
	if out.Rows[2]["season"] != "Estranha" || out.Rows[2]["season_macro"] != UnknownSeasonMacro {
		t.Errorf("unmapped season row = %v/%v", out.Rows[2]["season"], out.Rows[2]["season_macro"])
	}

	// Numeric coercion: parseable strings become floats, junk becomes missing.
	if out.Rows[2]["area"] != 80.0 {
		t.Errorf("area = %v (%T), want 80.0", out.Rows[2]["area"], out.Rows[2]["area"])
	}
	if out.Rows[1]["fertilizer_kg_ha"] != nil {
		t.Errorf("unparseable fertilizer = %v, want nil", out.Rows[1]["fertilizer_kg_ha"])
	}
	if out.Rows[2]["year"] != nil {
		t.Errorf("unparseable year = %v, want nil", out.Rows[2]["year"])
	}
	if y, ok := out.Rows[0]["year"].(int64); !ok || y != 2015 {
		t.Errorf("year = %v (%T), want int64 2015", out.Rows[0]["year"], out.Rows[0]["year"])
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize(rawUploadTable())
	twice := Normalize(once)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second normalization changed the table (-once +twice):\n%s", diff)
	}
}

func TestNormalizeLeavesInputUntouched(t *testing.T) {
	in := rawUploadTable()
	want := in.Clone()
	Normalize(in)

	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("input mutated by Normalize (-want +got):\n%s", diff)
	}
}

func TestNormalizeRederivesSeasonMacro(t *testing.T) {
	in := NewTable([]string{"Season", "season_macro"})
	in.Rows = append(in.Rows,
		Row{"Season": "Kharif", "season_macro": "Velho"},
		Row{"Season": "Estranha", "season_macro": "Velho"},
	)

	out := Normalize(in)
	// Macro values carried by the upload are discarded; the column comes
	// entirely from season.
	if out.Rows[0]["season_macro"] != "Chuvosa" {
		t.Errorf("kharif macro = %v, want Chuvosa", out.Rows[0]["season_macro"])
	}
	if out.Rows[1]["season_macro"] != UnknownSeasonMacro {
		t.Errorf("unmapped macro = %v, want %s", out.Rows[1]["season_macro"], UnknownSeasonMacro)
	}
}

func TestNormalizeKeepsExistingID(t *testing.T) {
	in := NewTable([]string{"id", "Crop"})
	in.Rows = append(in.Rows, Row{"id": 42.0, "Crop": "soja"})

	out := Normalize(in)
	if out.Columns[0] != "id" {
		t.Fatalf("columns = %v, want id first", out.Columns)
	}
	if out.Rows[0]["id"] != 42.0 {
		t.Errorf("existing id overwritten: %v", out.Rows[0]["id"])
	}
}

func TestSanitizeColumns(t *testing.T) {
	got := sanitizeColumns([]string{" Annual Rainfall ", "weird-name!", "", "crop", "Crop"})
	want := []string{"annual_rainfall", "weirdname", "col", "crop", "crop_2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sanitizeColumns mismatch (-want +got):\n%s", diff)
	}
}
