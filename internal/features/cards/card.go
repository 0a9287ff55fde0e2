// Package cards renders the image attached to a pinned trending post: the token
// logo on a dark card with the ticker and a subtitle underneath.
package cards

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	logging "omni-trending/internal/infra/log"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

const (
	cardWidth  = 1280
	cardHeight = 640

	logoSize = 360.0
	logoX    = 100.0
	logoY    = (cardHeight - logoSize) / 2

	textX         = 520.0
	titleY        = 290.0
	subtitleY     = 370.0
	titleSize     = 84.0
	subtitleSize  = 38.0
	textMaxWidth  = cardWidth - textX - 60
	accentBarSize = 12.0

	DefaultMaxLogoBytes = 5 << 20
)

var ErrLogoTooLarge = errors.New("logo exceeds size limit")

var (
	backgroundColor = color.RGBA{R: 14, G: 17, B: 24, A: 255}
	accentColor     = color.RGBA{R: 0, G: 214, B: 120, A: 255}
	subtitleColor   = color.RGBA{R: 160, G: 168, B: 184, A: 255}
)

var fontPaths = []string{
	"etc/fonts/Inter-Bold.ttf",
	"etc/fonts/Inter-Regular.ttf",
	"./etc/fonts/Inter-Regular.ttf",
	"~/Library/Fonts/Inter-Regular.ttf",
	"/Library/Fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/inter/Inter-Regular.ttf",
	"/usr/local/share/fonts/Inter-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
}

type Options struct {
	FontPath     string        // tried before the built-in list
	Timeout      time.Duration // logo download timeout
	MaxLogoBytes int64
	HTTPClient   *http.Client
}

type Renderer struct {
	client   *http.Client
	maxBytes int64
	fonts    []string

	fontOnce sync.Once
	fontPath string
}

func NewRenderer(opts Options) *Renderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxLogoBytes <= 0 {
		opts.MaxLogoBytes = DefaultMaxLogoBytes
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	fonts := fontPaths
	if opts.FontPath != "" {
		fonts = append([]string{opts.FontPath}, fontPaths...)
	}

	return &Renderer{
		client:   client,
		maxBytes: opts.MaxLogoBytes,
		fonts:    fonts,
	}
}

// Render downloads the logo and returns the finished card as PNG bytes.
func (r *Renderer) Render(ctx context.Context, logoURL, title, subtitle string) ([]byte, error) {
	logo, err := r.fetchLogo(ctx, logoURL)
	if err != nil {
		return nil, err
	}
	return r.Compose(logo, title, subtitle)
}

func (r *Renderer) fetchLogo(ctx context.Context, logoURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create logo request: %w", err)
	}
	req.Header.Set("User-Agent", "omni-trending/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download logo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("logo download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read logo: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrLogoTooLarge, r.maxBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode logo: %w", err)
	}
	logging.LogDebug("Logo downloaded",
		zap.String("url", logoURL),
		zap.String("format", format),
		zap.Int("bytes", len(data)))
	return img, nil
}

// Compose draws the card around an already decoded logo.
func (r *Renderer) Compose(logo image.Image, title, subtitle string) ([]byte, error) {
	dc := gg.NewContext(cardWidth, cardHeight)

	dc.SetColor(backgroundColor)
	dc.Clear()

	dc.SetColor(accentColor)
	dc.DrawRectangle(0, 0, cardWidth, accentBarSize)
	dc.Fill()

	if logo != nil {
		drawLogo(dc, logo)
	}

	fontPath := r.font()

	if fontPath != "" {
		dc.LoadFontFace(fontPath, titleSize)
	}
	dc.SetColor(color.White)
	dc.DrawString(truncate(dc, title, textMaxWidth), textX, titleY)

	if subtitle != "" {
		if fontPath != "" {
			dc.LoadFontFace(fontPath, subtitleSize)
		}
		dc.SetColor(subtitleColor)
		dc.DrawString(truncate(dc, subtitle, textMaxWidth), textX, subtitleY)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode card: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLogo scales the logo to fit a circle of logoSize.
func drawLogo(dc *gg.Context, logo image.Image) {
	w := float64(logo.Bounds().Dx())
	h := float64(logo.Bounds().Dy())
	if w == 0 || h == 0 {
		return
	}
	scale := logoSize / w
	if h > w {
		scale = logoSize / h
	}

	cx := logoX + logoSize/2
	cy := logoY + logoSize/2

	dc.Push()
	dc.DrawCircle(cx, cy, logoSize/2)
	dc.Clip()
	dc.Translate(cx-w*scale/2, cy-h*scale/2)
	dc.Scale(scale, scale)
	dc.DrawImage(logo, 0, 0)
	dc.Pop()
	dc.ResetClip()

	dc.SetColor(accentColor)
	dc.SetLineWidth(6)
	dc.DrawCircle(cx, cy, logoSize/2)
	dc.Stroke()
}

func truncate(dc *gg.Context, s string, maxWidth float64) string {
	if w, _ := dc.MeasureString(s); w <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if w, _ := dc.MeasureString(candidate); w <= maxWidth {
			return candidate
		}
	}
	return string(runes)
}

// font finds the first loadable font once; "" means gg's built-in face.
func (r *Renderer) font() string {
	r.fontOnce.Do(func() {
		probe := gg.NewContext(1, 1)
		for _, p := range r.fonts {
			path := expandPath(p)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := probe.LoadFontFace(path, titleSize); err != nil {
				logging.LogWarn("Font file exists but failed to load", zap.String("path", path), zap.Error(err))
				continue
			}
			r.fontPath = path
			logging.LogInfo("Card font loaded", zap.String("path", path))
			return
		}
		logging.LogWarn("No card font found, using default face", zap.Int("paths_checked", len(r.fonts)))
	})
	return r.fontPath
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}
