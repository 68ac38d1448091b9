// Package download turns stored files into HTTP download responses.
//
// A Response carries one file item and an optional file name override. It
// writes Content-Disposition and Content-Type from the item's metadata and
// then serves the payload: small payloads held in memory go through
// http.ServeContent, large streamed payloads are copied with an explicit
// Content-Length taken from the item's recorded size.
//
//	resp, err := download.FromIDToken(ctx, center, token, "")
//	if err != nil {
//		// malformed token or storage failure
//	}
//	if resp == nil {
//		http.NotFound(w, r)
//		return
//	}
//	resp.ServeHTTP(w, r)
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gobeaver/filecenter"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	// ErrConsumed is returned when a Response is served a second time.
	ErrConsumed = errors.New("download response already consumed")

	// ErrStreamAborted wraps failures that occur after the response headers
	// were sent. The client receives a truncated body.
	ErrStreamAborted = errors.New("download stream aborted")
)

// Response is a single-use download of one stored file.
type Response struct {
	fileName string
	item     Item
	consumed bool
}

// FromFileItem wraps an item that was already resolved. A non-empty
// fileName replaces the stored name in Content-Disposition.
func FromFileItem(item Item, fileName string) *Response {
	return &Response{
		fileName: fileName,
		item:     item,
	}
}

// FromID looks up id in center. It returns (nil, nil) when no file has
// that id. Lookup errors are returned as they are.
func FromID(ctx context.Context, center Center, id uuid.UUID, fileName string) (*Response, error) {
	item, err := center.FileItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	return FromFileItem(item, fileName), nil
}

// FromIDToken decrypts token into a file id and continues as FromID. A
// token that fails to decrypt is reported without touching storage.
func FromIDToken(ctx context.Context, center Center, token string, fileName string) (*Response, error) {
	id, err := center.DecryptIDToken(token)
	if err != nil {
		return nil, err
	}
	return FromID(ctx, center, id, fileName)
}

// IsTemporary reports whether the file has an expiration time.
func (resp *Response) IsTemporary() bool {
	_, ok := resp.item.ExpirationTime()
	return ok
}

// FileName returns the name sent to the client: the override when set,
// otherwise the stored name.
func (resp *Response) FileName() string {
	return lo.CoalesceOrEmpty(resp.fileName, resp.item.FileName())
}

// Respond writes the download to w. Errors raised while acquiring the
// payload are returned before anything is written. Errors while copying a
// streamed body wrap ErrStreamAborted; by then the headers are out.
func (resp *Response) Respond(w http.ResponseWriter, r *http.Request) error {
	if resp.consumed {
		return ErrConsumed
	}
	resp.consumed = true

	name := resp.FileName()
	mimeType := resp.item.MimeType()
	// Recorded before the payload is taken; streams do not know their length
	size := resp.item.FileSize()

	data, err := resp.item.IntoFileData(r.Context())
	if err != nil {
		return err
	}

	h := w.Header()
	h.Set("Content-Disposition", ContentDisposition(name))
	h.Set("Content-Type", mimeType)

	if data.IsBuffer() {
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data.Buffer))
		return nil
	}

	return serveStream(w, r, data.Stream, size)
}

func serveStream(w http.ResponseWriter, r *http.Request, stream io.ReadCloser, size uint64) error {
	defer stream.Close()

	w.Header().Set("Content-Length", strconv.FormatUint(size, 10))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return nil
	}

	n, err := io.Copy(w, &contextReader{ctx: r.Context(), r: stream})
	if err != nil {
		return fmt.Errorf("%w after %d of %d bytes: %w", ErrStreamAborted, n, size, err)
	}
	return nil
}

// ServeHTTP implements http.Handler. A stream failure after the headers
// were sent aborts the connection so the client cannot mistake the
// truncated body for a complete file.
func (resp *Response) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := resp.Respond(w, r)
	switch {
	case err == nil:
	case errors.Is(err, ErrStreamAborted):
		panic(http.ErrAbortHandler)
	case filecenter.IsNotExist(err):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

var _ http.Handler = (*Response)(nil)
