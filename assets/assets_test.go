package assets

import (
	"bytes"
	"testing"
)

func TestIndexHTML(t *testing.T) {
	page, err := IndexHTML()
	if err != nil {
		t.Fatalf("IndexHTML: %v", err)
	}

	for _, want := range []string{"Local Weather Station", "How close is shelter from", "/ws", "Walking", "Driving"} {
		if !bytes.Contains(page, []byte(want)) {
			t.Errorf("page missing %q", want)
		}
	}
	if bytes.Contains(page, []byte("{{")) {
		t.Errorf("page has unrendered template actions")
	}
	if len(page) >= len(indexTemplate)+len(styleCSS)+len(scriptJS) {
		t.Errorf("page was not minified: %d bytes", len(page))
	}
}
