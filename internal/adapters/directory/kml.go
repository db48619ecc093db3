// Package directory reads the shelter directory document: a KML file whose
// Placemark records carry postal addresses.
package directory

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"shelter-finder-service/internal/domain"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// ErrUnsupportedCharset is returned for documents declaring an encoding
// that cannot be decoded.
var ErrUnsupportedCharset = errors.New("unsupported document charset")

// ParseKML extracts one ShelterLocation per Placemark that has a non-blank
// <address> descendant, in document order. Element names are matched on
// their local part so any KML namespace (or none) is accepted.
//
// Documents may declare any encoding known to browsers (ISO-8859-1,
// windows-1252, Shift_JIS, ...). Returned errors wrap *xml.SyntaxError or
// ErrUnsupportedCharset for malformed documents; any other error comes from
// the underlying reader.
func ParseKML(r io.Reader) ([]domain.ShelterLocation, error) {
	dec := xml.NewDecoder(r)

	// encoding/xml flattens CharsetReader errors into a string, so the
	// failed label is kept here to restore the error chain.
	var badCharset string
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			badCharset = label
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var (
		out []domain.ShelterLocation

		depth          int
		placemarkDepth int // 0 when outside a Placemark
		addressDepth   int // 0 when not inside the captured <address>
		nameDepth      int // 0 when not inside the Placemark's own <name>

		haveAddress bool
		address     strings.Builder
		name        strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if badCharset != "" {
				return nil, fmt.Errorf("parse kml: %w %q", ErrUnsupportedCharset, badCharset)
			}
			return nil, fmt.Errorf("parse kml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "Placemark":
				if placemarkDepth == 0 {
					placemarkDepth = depth
					haveAddress = false
					address.Reset()
					name.Reset()
				}
			case "address":
				// Only the first address of a placemark counts.
				if placemarkDepth > 0 && !haveAddress && addressDepth == 0 {
					addressDepth = depth
				}
			case "name":
				if placemarkDepth > 0 && depth == placemarkDepth+1 && nameDepth == 0 {
					nameDepth = depth
				}
			}

		case xml.CharData:
			if addressDepth > 0 {
				address.Write(t)
			}
			if nameDepth > 0 {
				name.Write(t)
			}

		case xml.EndElement:
			if addressDepth == depth {
				addressDepth = 0
				haveAddress = true
			}
			if nameDepth == depth {
				nameDepth = 0
			}
			if placemarkDepth == depth {
				placemarkDepth = 0
				if addr := strings.TrimSpace(address.String()); haveAddress && addr != "" {
					out = append(out, domain.ShelterLocation{
						Address: addr,
						Name:    strings.TrimSpace(name.String()),
					})
				}
			}
			depth--
		}
	}

	return out, nil
}

// IsSyntaxError reports whether err came from a malformed document rather
// than from reading it.
func IsSyntaxError(err error) bool {
	var se *xml.SyntaxError
	return errors.As(err, &se) || errors.Is(err, ErrUnsupportedCharset)
}
