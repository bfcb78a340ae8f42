package download

import (
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"os"

	// Raster decoders register themselves with image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// validateImage checks that the staged file decodes as a known image
// format. Raster formats (png, gif, jpeg, webp) are sniffed by magic
// bytes; anything else must parse as an SVG document. This catches
// corrupt payloads and HTML error pages served with a 200.
func validateImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _, rasterErr := image.DecodeConfig(f)
	if rasterErr == nil {
		return nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if svgErr := validateSVG(f); svgErr != nil {
		return fmt.Errorf("not a decodable image: %v", rasterErr)
	}

	return nil
}

// validateSVG requires the payload to parse as XML with an svg root
// element.
func validateSVG(r io.Reader) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if start, ok := tok.(xml.StartElement); ok {
			if start.Name.Local != "svg" {
				return fmt.Errorf("unexpected root element %q", start.Name.Local)
			}
			return nil
		}
	}
}
