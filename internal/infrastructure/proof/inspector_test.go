package proof

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestInspector_AcceptsImages(t *testing.T) {
	info, err := NewInspector(0, 0, zap.NewNop()).Inspect(context.Background(), "photo.png", pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, 1, info.Pages)
}

func TestInspector_Rejects(t *testing.T) {
	ctx := context.Background()
	i := NewInspector(64, 0, zap.NewNop())

	_, err := i.Inspect(ctx, "empty.pdf", nil)
	assert.Error(t, err)

	_, err = i.Inspect(ctx, "notes.txt", []byte("just some text"))
	assert.Error(t, err)

	_, err = i.Inspect(ctx, "big.png", bytes.Repeat([]byte{0}, 65))
	assert.Error(t, err)

	_, err = i.Inspect(ctx, "broken.pdf", []byte("%PDF-1.4 truncated"))
	assert.Error(t, err)
}
