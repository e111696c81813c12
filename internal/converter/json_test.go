package converter_test

import (
	"context"
	"reflect"
	"slices"
	"testing"

	"github.com/msomdec/kormkit/internal/converter"
	"github.com/msomdec/kormkit/internal/domain"
	"github.com/msomdec/kormkit/internal/provider"
)

type address struct {
	Street string   `json:"street"`
	Tags   []string `json:"tags"`
}

func TestJSONConverter(t *testing.T) {
	c, err := converter.NewJSON(reflect.TypeOf(address{}))
	if err != nil {
		t.Fatalf("NewJSON: %v", err)
	}

	stored, err := c.ConvertBack(address{Street: "Main", Tags: []string{"home"}})
	if err != nil {
		t.Fatalf("ConvertBack: %v", err)
	}
	if stored != `{"street":"Main","tags":["home"]}` {
		t.Fatalf("unexpected JSON %v", stored)
	}

	for _, src := range []any{stored, []byte(stored.(string))} {
		got, err := c.Convert(src)
		if err != nil {
			t.Fatalf("Convert(%T): %v", src, err)
		}
		a, ok := got.(address)
		if !ok {
			t.Fatalf("expected address, got %T", got)
		}
		if a.Street != "Main" || !slices.Equal(a.Tags, []string{"home"}) {
			t.Fatalf("unexpected value %+v", a)
		}
	}
}

func TestJSONConverter_Errors(t *testing.T) {
	if _, err := converter.NewJSON(nil); err == nil {
		t.Fatal("expected error for nil type")
	}

	c, err := converter.NewJSON(reflect.TypeOf(address{}))
	if err != nil {
		t.Fatalf("NewJSON: %v", err)
	}
	if _, err := c.Convert(42); err == nil {
		t.Fatal("expected error for non-text value")
	}
	if _, err := c.Convert("{not json"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if got, err := c.Convert(nil); err != nil || got != nil {
		t.Fatalf("expected nil for NULL, got %v, %v", got, err)
	}
	if _, err := c.ConvertBack(make(chan int)); err == nil {
		t.Fatal("expected error for unencodable value")
	}
}

func TestJSONColumnRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := provider.Open(ctx, domain.ConnectionSettings{ConnectionString: ":memory:"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "CREATE TABLE people (id INTEGER PRIMARY KEY, address TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	in := converter.NewJSONValue(address{Street: "Elm", Tags: []string{"work", "po"}})
	if _, err := db.ExecContext(ctx, "INSERT INTO people (id, address) VALUES (1, ?), (2, NULL)", in); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var out converter.JSON[address]
	if err := db.QueryRowContext(ctx, "SELECT address FROM people WHERE id = 1").Scan(&out); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !out.Valid || out.V.Street != "Elm" || !slices.Equal(out.V.Tags, []string{"work", "po"}) {
		t.Fatalf("unexpected value %+v", out)
	}

	var null converter.JSON[address]
	if err := db.QueryRowContext(ctx, "SELECT address FROM people WHERE id = 2").Scan(&null); err != nil {
		t.Fatalf("scan null: %v", err)
	}
	if null.Valid {
		t.Fatal("expected NULL to scan as invalid")
	}
}
