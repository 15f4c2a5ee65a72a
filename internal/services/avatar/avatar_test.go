package avatar

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"auth_service/internal/lib/logger/handlers/slogdiscard"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBlobStore struct {
	mock.Mock
	body []byte
}

func (m *MockBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.body = data

	args := m.Called(ctx, key, size, contentType)
	return args.Error(0)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockBlobStore) URL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("avatar", filename)
	require.NoError(t, err)

	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	file, header, err := req.FormFile("avatar")
	require.NoError(t, err)
	file.Close()

	return header
}

func TestIngest_ResizesAndStores(t *testing.T) {
	ctx := context.Background()
	store := new(MockBlobStore)
	svc := New(slogdiscard.NewDiscardLogger(), store, 0, 0)

	store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
		return strings.HasSuffix(key, ".png") && len(key) == 36+len(".png")
	}), mock.AnythingOfType("int64"), "image/png").Return(nil).Once()

	key, err := svc.Ingest(ctx, fileHeader(t, "me.PNG", pngBytes(t, 300, 200)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".png"))
	store.AssertExpectations(t)

	stored, err := imaging.Decode(bytes.NewReader(store.body))
	require.NoError(t, err)
	assert.Equal(t, 128, stored.Bounds().Dx())
	assert.Equal(t, 128, stored.Bounds().Dy())
}

func TestIngest_RandomKeys(t *testing.T) {
	ctx := context.Background()
	store := new(MockBlobStore)
	svc := New(slogdiscard.NewDiscardLogger(), store, 32, 0)

	store.On("Put", ctx, mock.Anything, mock.Anything, "image/jpeg").Return(nil).Twice()

	content := pngBytes(t, 64, 64)
	first, err := svc.Ingest(ctx, fileHeader(t, "face.jpg", content))
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, fileHeader(t, "face.jpg", content))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(first, ".jpg"))
}

func TestIngest_UnknownExtensionFallsBackToPNG(t *testing.T) {
	ctx := context.Background()
	store := new(MockBlobStore)
	svc := New(slogdiscard.NewDiscardLogger(), store, 16, 0)

	store.On("Put", ctx, mock.Anything, mock.Anything, "image/png").Return(nil).Once()

	key, err := svc.Ingest(ctx, fileHeader(t, "avatar", pngBytes(t, 20, 20)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".png"))
}

func TestIngest_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("nil file", func(t *testing.T) {
		svc := New(slogdiscard.NewDiscardLogger(), new(MockBlobStore), 0, 0)
		_, err := svc.Ingest(ctx, nil)
		assert.ErrorIs(t, err, ErrNoFile)
	})

	t.Run("not an image", func(t *testing.T) {
		store := new(MockBlobStore)
		svc := New(slogdiscard.NewDiscardLogger(), store, 0, 0)

		_, err := svc.Ingest(ctx, fileHeader(t, "doc.png", []byte("definitely not a png")))
		assert.ErrorIs(t, err, ErrInvalidImage)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("too large", func(t *testing.T) {
		store := new(MockBlobStore)
		svc := New(slogdiscard.NewDiscardLogger(), store, 0, 10)

		_, err := svc.Ingest(ctx, fileHeader(t, "big.png", pngBytes(t, 50, 50)))
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("store error", func(t *testing.T) {
		store := new(MockBlobStore)
		svc := New(slogdiscard.NewDiscardLogger(), store, 0, 0)
		expectedErr := errors.New("bucket unavailable")

		store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(expectedErr).Once()

		_, err := svc.Ingest(ctx, fileHeader(t, "me.png", pngBytes(t, 10, 10)))
		assert.ErrorIs(t, err, expectedErr)
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	store := new(MockBlobStore)
	svc := New(slogdiscard.NewDiscardLogger(), store, 0, 0)

	store.On("Delete", ctx, "a.png").Return(nil).Once()
	store.On("Delete", ctx, "b.png").Return(errors.New("gone")).Once()

	assert.NoError(t, svc.Remove(ctx, "a.png"))
	assert.ErrorContains(t, svc.Remove(ctx, "b.png"), "gone")
	store.AssertExpectations(t)
}

func TestURL(t *testing.T) {
	store := new(MockBlobStore)
	svc := New(slogdiscard.NewDiscardLogger(), store, 0, 0)

	store.On("URL", "a.png").Return("http://cdn/a.png").Once()

	assert.Equal(t, "http://cdn/a.png", svc.URL("a.png"))
	assert.Equal(t, "", svc.URL(""))
}
