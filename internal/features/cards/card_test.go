package cards

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogo(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeCard(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	return img
}

func TestRender(t *testing.T) {
	logo := testLogo(t, 64, 32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(logo)
	}))
	defer srv.Close()

	r := NewRenderer(Options{})
	data, err := r.Render(context.Background(), srv.URL+"/logo.png", "$PEPE", "Solana")
	require.NoError(t, err)

	img := decodeCard(t, data)
	assert.Equal(t, cardWidth, img.Bounds().Dx())
	assert.Equal(t, cardHeight, img.Bounds().Dy())

	// center of the logo circle is the logo's red
	cr, cg, _, _ := img.At(int(logoX+logoSize/2), int(logoY+logoSize/2)).RGBA()
	assert.Equal(t, uint32(0xffff), cr)
	assert.Equal(t, uint32(0), cg)
}

func TestRender_TooLarge(t *testing.T) {
	logo := testLogo(t, 64, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(logo)
	}))
	defer srv.Close()

	r := NewRenderer(Options{MaxLogoBytes: int64(len(logo) - 1)})
	_, err := r.Render(context.Background(), srv.URL, "X", "")
	assert.ErrorIs(t, err, ErrLogoTooLarge)
}

func TestRender_BadResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer srv.Close()

	r := NewRenderer(Options{})

	_, err := r.Render(context.Background(), srv.URL+"/missing", "X", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = r.Render(context.Background(), srv.URL+"/html", "X", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestCompose_WithoutLogo(t *testing.T) {
	r := NewRenderer(Options{FontPath: "/nonexistent/font.ttf"})
	data, err := r.Compose(nil, "A very long token title that will not fit on a single card line at all", "sub")
	require.NoError(t, err)

	img := decodeCard(t, data)
	br, bg, bb, _ := img.At(cardWidth-5, cardHeight-5).RGBA()
	assert.Equal(t, uint32(backgroundColor.R)*0x101, br)
	assert.Equal(t, uint32(backgroundColor.G)*0x101, bg)
	assert.Equal(t, uint32(backgroundColor.B)*0x101, bb)
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "/abs/font.ttf", expandPath("/abs/font.ttf"))
	t.Setenv("HOME", "/tmp/home")
	assert.Equal(t, "/tmp/home/font.ttf", expandPath("~/font.ttf"))
}
