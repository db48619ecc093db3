package directory

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const threePlacemarks = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <name>Shelters</name>
    <Placemark>
      <name>North Hall</name>
      <address>  10 Main St, Springfield  </address>
    </Placemark>
    <Placemark>
      <name>No address here</name>
      <Point><coordinates>-72.5,42.1,0</coordinates></Point>
    </Placemark>
    <Placemark>
      <address>20 Oak Ave, Springfield</address>
    </Placemark>
  </Document>
</kml>`

func TestParseKMLSkipsPlacemarksWithoutAddress(t *testing.T) {
	locs, err := ParseKML(strings.NewReader(threePlacemarks))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(locs) != 2 {
		t.Fatalf("expected 2 locations, got %d: %+v", len(locs), locs)
	}
	if locs[0].Address != "10 Main St, Springfield" {
		t.Errorf("first address = %q", locs[0].Address)
	}
	if locs[0].Name != "North Hall" {
		t.Errorf("first name = %q", locs[0].Name)
	}
	if locs[1].Address != "20 Oak Ave, Springfield" {
		t.Errorf("second address = %q", locs[1].Address)
	}
	if locs[1].Name != "" {
		t.Errorf("second name = %q, want empty", locs[1].Name)
	}
}

func TestParseKMLKeepsDuplicatesAndSkipsBlank(t *testing.T) {
	doc := `<kml><Document>
	<Placemark><address>A</address></Placemark>
	<Placemark><address>   </address></Placemark>
	<Placemark><ExtendedData><address>A</address></ExtendedData></Placemark>
	<Placemark><address>B</address><address>C</address></Placemark>
	</Document></kml>`

	locs, err := ParseKML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]string, 0, len(locs))
	for _, l := range locs {
		got = append(got, l.Address)
	}
	if strings.Join(got, "|") != "A|A|B" {
		t.Fatalf("addresses = %v, want [A A B]", got)
	}
}

func TestParseKMLEmptyDocument(t *testing.T) {
	locs, err := ParseKML(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 0 {
		t.Fatalf("expected no locations, got %d", len(locs))
	}
}

func TestParseKMLMalformed(t *testing.T) {
	_, err := ParseKML(strings.NewReader(`<kml><Placemark><address>A</Placemark></kml>`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsSyntaxError(err) {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func TestParseKMLDeclaredCharset(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<kml><Placemark><name>B\xfcrgerhaus</name><address>Hauptstra\xdfe 1, M\xfcnchen</address></Placemark></kml>"

	locs, err := ParseKML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("expected 1 location, got %d", len(locs))
	}
	if locs[0].Address != "Hauptstraße 1, München" || locs[0].Name != "Bürgerhaus" {
		t.Fatalf("location = %+v", locs[0])
	}
}

func TestParseKMLUnknownCharset(t *testing.T) {
	doc := `<?xml version="1.0" encoding="x-no-such-charset"?><kml><Placemark><address>A</address></Placemark></kml>`

	_, err := ParseKML(strings.NewReader(doc))
	if !errors.Is(err, ErrUnsupportedCharset) {
		t.Fatalf("expected ErrUnsupportedCharset, got %v", err)
	}
	if !IsSyntaxError(err) {
		t.Fatalf("unknown charset must count as a malformed document: %v", err)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shelters.kml" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, threePlacemarks)
	}))
	defer srv.Close()

	src := NewSource(srv.URL+"/shelters.kml", 2*time.Second)
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()

	locs, err := ParseKML(rc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(locs) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(locs))
	}

	missing := NewSource(srv.URL+"/missing.kml", 2*time.Second)
	if _, err := missing.Open(context.Background()); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelters.kml")
	if err := os.WriteFile(path, []byte(threePlacemarks), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src := NewSource(path, time.Second)
	if _, ok := src.(*FileSource); !ok {
		t.Fatalf("expected *FileSource, got %T", src)
	}

	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rc.Close()

	if _, err := NewFileSource(filepath.Join(t.TempDir(), "nope.kml")).Open(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
