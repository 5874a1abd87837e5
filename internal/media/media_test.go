package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celiscope/celiscope/internal/shared"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.Set(x, 1, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0}, FormatJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}, FormatPNG},
		{"gif", []byte("GIF89a"), FormatGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), FormatWebP},
		{"heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00"), FormatHEIC},
		{"mif1", []byte("\x00\x00\x00\x18ftypmif1\x00\x00"), FormatHEIC},
		{"tiff le", []byte{'I', 'I', 0x2A, 0x00, 8, 0}, FormatTIFF},
		{"tiff be", []byte{'M', 'M', 0x00, 0x2A, 0, 8}, FormatTIFF},
		{"short", []byte{0xFF}, ""},
		{"text", []byte("hello world!"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.data))
		})
	}
}

func TestToJPEG_ConvertsPNG(t *testing.T) {
	out, err := ToJPEG(pngBytes(t), "image/png")
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, DetectFormat(out))

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
}

func TestToJPEG_RejectsHEIC(t *testing.T) {
	_, err := ToJPEG([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), "image/heic")
	e, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Contains(t, e.Message, "HEIC")
}

func TestToJPEG_BrokenJPEGPassesThrough(t *testing.T) {
	broken := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3, 4}
	out, err := ToJPEG(broken, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, broken, out)
}

func TestToJPEG_Garbage(t *testing.T) {
	_, err := ToJPEG([]byte("definitely not an image"), "image/png")
	e, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Contains(t, e.Message, "Не удалось обработать изображение")

	_, err = ToJPEG([]byte("definitely not an image"), "application/pdf")
	e, ok = shared.AsError(err)
	require.True(t, ok)
	assert.Contains(t, e.Message, "Неподдерживаемый формат изображения: application/pdf")
}

// pngHeader returns a PNG holding only an IHDR chunk for a w x h RGBA image
// and an IEND chunk, without any pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		body := append([]byte(typ), data...)
		buf.Write(body)
		_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA
	chunk("IHDR", ihdr)
	chunk("IEND", nil)
	return buf.Bytes()
}

func TestToJPEG_RejectsOversizedCanvas(t *testing.T) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(pngHeader(60000, 60000)))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.Equal(t, 60000, cfg.Width)

	_, err = ToJPEG(pngHeader(60000, 60000), "image/png")
	e, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Contains(t, e.Message, "Не удалось обработать изображение")
	assert.Contains(t, e.Message, "60000x60000")
}

type s3Request struct {
	method      string
	path        string
	contentType string
	body        []byte
}

func fakeS3(t *testing.T) (*httptest.Server, func() []s3Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []s3Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, s3Request{r.Method, r.URL.Path, r.Header.Get("Content-Type"), body})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []s3Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]s3Request(nil), reqs...)
	}
}

func TestS3Storage_UploadAndDelete(t *testing.T) {
	srv, requests := fakeS3(t)
	ctx := context.Background()

	st, err := NewS3Storage(ctx, S3Config{
		Region: "eu-north-1", AccessKey: "ak", SecretKey: "sk", Bucket: "goals", Endpoint: srv.URL,
	})
	require.NoError(t, err)

	url, err := st.Upload(ctx, "goal-1.jpg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/goals/goal-1.jpg", url)

	require.NoError(t, st.Delete(ctx, KeyFromURL(url)))

	reqs := requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/goals/goal-1.jpg", reqs[0].path)
	assert.Equal(t, "image/jpeg", reqs[0].contentType)
	assert.Contains(t, string(reqs[0].body), "jpeg-bytes")
	assert.Equal(t, http.MethodDelete, reqs[1].method)
	assert.Equal(t, "/goals/goal-1.jpg", reqs[1].path)
}

func TestS3Storage_URL(t *testing.T) {
	st, err := NewS3Storage(context.Background(), S3Config{AccessKey: "ak", SecretKey: "sk", Bucket: "celiscope"})
	require.NoError(t, err)
	assert.Equal(t, "https://celiscope.s3.eu-north-1.amazonaws.com/user-1-2.jpg", st.URL("user-1-2.jpg"))
}

func TestNewS3Storage_NotConfigured(t *testing.T) {
	_, err := NewS3Storage(context.Background(), S3Config{Bucket: "b"})
	assert.ErrorIs(t, err, ErrStorageNotConfigured)

	_, err = DisabledStorage{}.Upload(context.Background(), "k", nil)
	e, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, e.Status)
}

func TestKeyFromURL(t *testing.T) {
	assert.Equal(t, "goal-9.jpg", KeyFromURL("https://b.s3.eu-north-1.amazonaws.com/goal-9.jpg"))
	assert.Equal(t, "plain", KeyFromURL("plain"))
}
