package production

import (
	"archive/zip"
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

//go:embed assets/waves/*.svg
var embeddedWaves embed.FS

// qrModulePixels is the PNG size of one QR module.
const qrModulePixels = 8

// WaveTemplates returns the waveform artwork source: dir when set, else the
// embedded catalog.
func WaveTemplates(dir string) (fs.FS, error) {
	if strings.TrimSpace(dir) != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(embeddedWaves, "assets/waves")
}

// WaveFilename is the artwork file for a template id.
func WaveFilename(templateID int) string {
	return fmt.Sprintf("wave%02d.svg", templateID)
}

// MintedCard is a persisted card with its plaintext setup code. It lives only
// for the duration of order setup.
type MintedCard struct {
	Index      int     `json:"index"`
	Token      string  `json:"token"`
	SetupCode  string  `json:"setup_code"`
	TemplateID int     `json:"waveform_template_id"`
	Message    *string `json:"message,omitempty"`
}

type packSummary struct {
	OrderID   string        `json:"order_id"`
	CreatedAt time.Time     `json:"created_at"`
	Buyer     Buyer         `json:"buyer"`
	Cards     []summaryCard `json:"cards"`
}

type summaryCard struct {
	Token      string `json:"token"`
	TemplateID int    `json:"waveform_template_id"`
	SetupCode  string `json:"setup_code"`
	Message    string `json:"message"`
}

// BuildPack renders the production zip for an order: order-summary.json plus a
// card-NN folder per card holding the QR code, waveform, token, and setup code.
func BuildPack(orderID string, createdAt time.Time, buyer Buyer, cards []MintedCard, baseURL string, waves fs.FS) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	summary := packSummary{OrderID: orderID, CreatedAt: createdAt.UTC(), Buyer: buyer, Cards: make([]summaryCard, 0, len(cards))}
	for _, c := range cards {
		sc := summaryCard{Token: c.Token, TemplateID: c.TemplateID, SetupCode: c.SetupCode}
		if c.Message != nil {
			sc.Message = *c.Message
		}
		summary.Cards = append(summary.Cards, sc)
	}
	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode order summary: %w", err)
	}
	if err = writeZipEntry(zw, "order-summary.json", summaryJSON); err != nil {
		return nil, err
	}

	for _, c := range cards {
		folder := fmt.Sprintf("card-%02d", c.Index)
		cardURL := CardURL(baseURL, c.Token)

		code, errQR := qrcode.New(cardURL, qrcode.Medium)
		if errQR != nil {
			return nil, fmt.Errorf("encode qr for %s: %w", folder, errQR)
		}
		png, errPNG := code.PNG(-qrModulePixels)
		if errPNG != nil {
			return nil, fmt.Errorf("render qr png for %s: %w", folder, errPNG)
		}
		wave, errWave := fs.ReadFile(waves, WaveFilename(c.TemplateID))
		if errWave != nil {
			return nil, fmt.Errorf("load waveform %d: %w", c.TemplateID, errWave)
		}

		entries := []struct {
			name string
			data []byte
		}{
			{"qr.png", png},
			{"qr.svg", []byte(qrSVG(code.Bitmap()))},
			{"wave.svg", wave},
			{"token.txt", []byte(c.Token)},
			{"setup-code.txt", []byte(c.SetupCode)},
		}
		for _, e := range entries {
			if err = writeZipEntry(zw, folder+"/"+e.name, e.data); err != nil {
				return nil, err
			}
		}
	}

	if err = zw.Close(); err != nil {
		return nil, fmt.Errorf("finish zip: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}
	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}
	return nil
}

// qrSVG renders a QR bitmap, quiet zone included, as one SVG path.
func qrSVG(bitmap [][]bool) string {
	size := len(bitmap)
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, size, size)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`, size, size)
	b.WriteString(`<path fill="#000000" d="`)
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&b, "M%d %dh1v1h-1z", x, y)
			}
		}
	}
	b.WriteString(`"/></svg>`)
	b.WriteByte('\n')
	return b.String()
}
