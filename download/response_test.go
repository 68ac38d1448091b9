package download_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobeaver/filecenter"
	"github.com/gobeaver/filecenter/download"
	"github.com/gobeaver/filecenter/internal/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// trackingStream records whether it was closed and can fail after a
// number of bytes.
type trackingStream struct {
	r      io.Reader
	failAt int
	read   int
	closed bool
}

func (s *trackingStream) Read(p []byte) (int, error) {
	if s.failAt > 0 && s.read >= s.failAt {
		return 0, errors.New("disk on fire")
	}
	if s.failAt > 0 && len(p) > s.failAt-s.read {
		p = p[:s.failAt-s.read]
	}
	n, err := s.r.Read(p)
	s.read += n
	return n, err
}

func (s *trackingStream) Close() error {
	s.closed = true
	return nil
}

func newItem(ctrl *gomock.Controller, name, mimeType string, size uint64) *mocks.MockItem {
	item := mocks.NewMockItem(ctrl)
	item.EXPECT().FileName().Return(name).AnyTimes()
	item.EXPECT().MimeType().Return(mimeType).AnyTimes()
	item.EXPECT().FileSize().Return(size).AnyTimes()
	item.EXPECT().ExpirationTime().Return(time.Time{}, false).AnyTimes()
	return item
}

func TestRespond_BufferedImage(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	payload := bytes.Repeat([]byte{0xAB}, 2048)
	item := newItem(ctrl, "image(cat).jpg", "image/jpeg", 2048)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Buffer: payload}, nil)

	resp := download.FromFileItem(item, "")
	rec := httptest.NewRecorder()
	req.NoError(resp.Respond(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

	req.Equal(http.StatusOK, rec.Code)
	req.Equal("attachment; filename*=UTF-8''image%28cat%29.jpg", rec.Header().Get("Content-Disposition"))
	req.Equal("image/jpeg", rec.Header().Get("Content-Type"))
	req.Equal(payload, rec.Body.Bytes())
	// framing comes from http.ServeContent, and matches the body
	req.Equal("2048", rec.Header().Get("Content-Length"))
	req.False(resp.IsTemporary())
}

func TestServeHTTP_BufferedRange(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	item := newItem(ctrl, "digits.txt", "text/plain", 10)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Buffer: []byte("0123456789")}, nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Range", "bytes=2-4")
	rec := httptest.NewRecorder()
	req.NoError(download.FromFileItem(item, "").Respond(rec, r))

	req.Equal(http.StatusPartialContent, rec.Code)
	req.Equal("234", rec.Body.String())
}

func TestRespond_OverrideName(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	item := newItem(ctrl, "stored.bin", "application/octet-stream", 3)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Buffer: []byte("abc")}, nil)

	resp := download.FromFileItem(item, "Überweisung.pdf")
	req.Equal("Überweisung.pdf", resp.FileName())

	rec := httptest.NewRecorder()
	req.NoError(resp.Respond(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
	req.Equal("attachment; filename*=UTF-8''%C3%9Cberweisung.pdf", rec.Header().Get("Content-Disposition"))
	req.NotContains(rec.Header().Get("Content-Disposition"), "stored")
}

func TestRespond_EmptyNames(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	item := newItem(ctrl, "", "text/plain", 0)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Buffer: []byte{}}, nil)

	rec := httptest.NewRecorder()
	req.NoError(download.FromFileItem(item, "").Respond(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
	req.Equal("attachment", rec.Header().Get("Content-Disposition"))
	req.Zero(rec.Body.Len())
}

func TestRespond_EmptyOverrideUsesStoredName(t *testing.T) {
	ctrl := gomock.NewController(t)

	item := newItem(ctrl, "stored.txt", "text/plain", 0)
	assert.Equal(t, "stored.txt", download.FromFileItem(item, "").FileName())
}

func TestRespond_StreamedContentLength(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	payload := strings.Repeat("x", 4096)
	stream := &trackingStream{r: strings.NewReader(payload)}

	item := mocks.NewMockItem(ctrl)
	item.EXPECT().FileName().Return("big.log").AnyTimes()
	item.EXPECT().MimeType().Return("text/plain").AnyTimes()
	gomock.InOrder(
		item.EXPECT().FileSize().Return(uint64(4096)),
		item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Stream: stream}, nil),
	)

	rec := httptest.NewRecorder()
	req.NoError(download.FromFileItem(item, "").Respond(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

	req.Equal(http.StatusOK, rec.Code)
	req.Equal("4096", rec.Header().Get("Content-Length"))
	req.Equal("text/plain", rec.Header().Get("Content-Type"))
	req.Equal(payload, rec.Body.String())
	req.True(stream.closed)
}

func TestServeHTTP_StreamedHead(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	stream := &trackingStream{r: strings.NewReader("never sent")}
	item := newItem(ctrl, "big.log", "text/plain", 10)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Stream: stream}, nil)

	rec := httptest.NewRecorder()
	req.NoError(download.FromFileItem(item, "").Respond(rec, httptest.NewRequest(http.MethodHead, "/", nil)))

	req.Equal("10", rec.Header().Get("Content-Length"))
	req.Zero(rec.Body.Len())
	req.True(stream.closed)
}

func TestRespond_PayloadErrorWritesNothing(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	item := newItem(ctrl, "gone.txt", "text/plain", 10)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{}, filecenter.ErrNotExist)

	rec := httptest.NewRecorder()
	err := download.FromFileItem(item, "").Respond(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	req.ErrorIs(err, filecenter.ErrNotExist)
	req.NotErrorIs(err, download.ErrStreamAborted)
	req.Empty(rec.Header().Get("Content-Disposition"))
	req.Empty(rec.Header().Get("Content-Type"))
	req.False(rec.Flushed)
	req.Zero(rec.Body.Len())
}

func TestServeHTTP_MissingPayload(t *testing.T) {
	ctrl := gomock.NewController(t)

	item := newItem(ctrl, "gone.txt", "text/plain", 10)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{}, filecenter.NewPathError("read", "blobs/x", filecenter.ErrNotExist))

	rec := httptest.NewRecorder()
	download.FromFileItem(item, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestRespond_StreamFailureAborts(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	stream := &trackingStream{r: strings.NewReader(strings.Repeat("y", 100)), failAt: 40}
	item := newItem(ctrl, "partial.bin", "application/octet-stream", 100)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Stream: stream}, nil)

	rec := httptest.NewRecorder()
	err := download.FromFileItem(item, "").Respond(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	req.ErrorIs(err, download.ErrStreamAborted)
	req.ErrorContains(err, "disk on fire")
	req.Equal("100", rec.Header().Get("Content-Length"))
	req.Equal(40, rec.Body.Len())
	req.True(stream.closed)
}

func TestServeHTTP_AbortOnStreamFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	stream := &trackingStream{r: strings.NewReader(strings.Repeat("y", 100)), failAt: 10}
	item := newItem(ctrl, "partial.bin", "application/octet-stream", 100)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Stream: stream}, nil)

	resp := download.FromFileItem(item, "")
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		resp.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestServeHTTP_CancelledRequest(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	stream := &trackingStream{r: strings.NewReader(strings.Repeat("z", 100))}
	item := newItem(ctrl, "big.bin", "application/octet-stream", 100)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Stream: stream}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	rec := httptest.NewRecorder()
	err := download.FromFileItem(item, "").Respond(rec, r)

	req.ErrorIs(err, download.ErrStreamAborted)
	req.ErrorIs(err, context.Canceled)
	req.Zero(stream.read)
	req.True(stream.closed)
}

func TestRespond_Twice(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	item := newItem(ctrl, "once.txt", "text/plain", 1)
	item.EXPECT().IntoFileData(gomock.Any()).Return(filecenter.FileData{Buffer: []byte("1")}, nil).Times(1)

	resp := download.FromFileItem(item, "")
	req.NoError(resp.Respond(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
	req.ErrorIs(resp.Respond(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)), download.ErrConsumed)
}

func TestIsTemporary(t *testing.T) {
	ctrl := gomock.NewController(t)

	permanent := mocks.NewMockItem(ctrl)
	permanent.EXPECT().ExpirationTime().Return(time.Time{}, false)
	assert.False(t, download.FromFileItem(permanent, "").IsTemporary())

	temporary := mocks.NewMockItem(ctrl)
	temporary.EXPECT().ExpirationTime().Return(time.Now().Add(time.Hour), true)
	assert.True(t, download.FromFileItem(temporary, "").IsTemporary())

	// an expiration in the past still marks the item temporary
	expired := mocks.NewMockItem(ctrl)
	expired.EXPECT().ExpirationTime().Return(time.Unix(0, 0), true)
	assert.True(t, download.FromFileItem(expired, "").IsTemporary())
}

func TestFromID_NotFound(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	id := uuid.New()
	center := mocks.NewMockCenter(ctrl)
	center.EXPECT().FileItemByID(gomock.Any(), id).Return(nil, nil)

	resp, err := download.FromID(context.Background(), center, id, "")
	req.NoError(err)
	req.Nil(resp)
}

func TestFromID_LookupError(t *testing.T) {
	ctrl := gomock.NewController(t)

	backend := errors.New("index unavailable")
	center := mocks.NewMockCenter(ctrl)
	center.EXPECT().FileItemByID(gomock.Any(), gomock.Any()).Return(nil, backend)

	resp, err := download.FromID(context.Background(), center, uuid.New(), "")
	require.Equal(t, backend, err, "lookup errors are returned unwrapped")
	require.Nil(t, resp)
}

func TestFromIDToken_InvalidTokenSkipsLookup(t *testing.T) {
	ctrl := gomock.NewController(t)

	center := mocks.NewMockCenter(ctrl)
	center.EXPECT().DecryptIDToken("not-a-token").Return(uuid.Nil, filecenter.ErrInvalidIDToken)
	center.EXPECT().FileItemByID(gomock.Any(), gomock.Any()).Times(0)

	resp, err := download.FromIDToken(context.Background(), center, "not-a-token", "")
	require.ErrorIs(t, err, filecenter.ErrInvalidIDToken)
	require.Nil(t, resp)
}

func TestFromIDToken_ResolvesID(t *testing.T) {
	ctrl := gomock.NewController(t)

	id := uuid.New()
	center := mocks.NewMockCenter(ctrl)
	gomock.InOrder(
		center.EXPECT().DecryptIDToken("token").Return(id, nil),
		center.EXPECT().FileItemByID(gomock.Any(), id).Return(nil, nil),
	)

	resp, err := download.FromIDToken(context.Background(), center, "token", "")
	require.NoError(t, err)
	require.Nil(t, resp)
}
