package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	color_extractor "github.com/marekm4/color-extractor"
)

// FetchImageContent downloads an image and returns its raw bytes, a file
// extension derived from the sniffed mime type and the dominant colours of
// the image as hex strings. Gallery entries use the colours as accent values
// behind their thumbnails.
func FetchImageContent(client *http.Client, imageUrl string) ([]byte, string, []string, error) {
	req, err := http.NewRequest("GET", imageUrl, nil)
	if err != nil {
		return []byte{}, "", []string{}, err
	}
	res, err := client.Do(req)
	if err != nil {
		return []byte{}, "", []string{}, err
	}
	defer res.Body.Close()

	var buf bytes.Buffer
	tee := io.TeeReader(res.Body, &buf)

	body, err := io.ReadAll(tee)
	if err != nil {
		return []byte{}, "", []string{}, err
	}

	mimeType := http.DetectContentType(body)

	extension := ""

	switch mimeType {
	case "image/jpeg":
		extension = "jpeg"
	case "image/png":
		extension = "png"
	}

	var accents []string

	img, _, err := image.Decode(&buf)
	if err != nil {
		return body, extension, accents, nil
	}
	colours := color_extractor.ExtractColors(img)
	for _, c := range colours {
		accents = append(accents, colorToHexString(c))
	}

	return body, extension, accents, nil
}

func colorToHexString(c color.Color) string {
	r, g, b, a := c.RGBA()
	rgba := color.RGBA{uint8(r), uint8(g), uint8(b), uint8(a)}
	return fmt.Sprintf("#%.2x%.2x%.2x", rgba.R, rgba.G, rgba.B)
}
