package download_test

import (
	"mime"
	"testing"

	"github.com/gobeaver/filecenter/download"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "attachment"},
		{"report.pdf", "attachment; filename*=UTF-8''report.pdf"},
		{"image(cat).jpg", "attachment; filename*=UTF-8''image%28cat%29.jpg"},
		{"a b.txt", "attachment; filename*=UTF-8''a%20b.txt"},
		{"über.txt", "attachment; filename*=UTF-8''%C3%BCber.txt"},
		{"x-y_z~1.tar.gz", "attachment; filename*=UTF-8''x-y_z~1.tar.gz"},
		{"q?#{}`.txt", "attachment; filename*=UTF-8''q%3F%23%7B%7D%60.txt"},
		{"semi;colon,eq=at@.txt", "attachment; filename*=UTF-8''semi%3Bcolon%2Ceq%3Dat%40.txt"},
		{"100%.txt", "attachment; filename*=UTF-8''100%25.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, download.ContentDisposition(tt.name))
		})
	}
}

func TestContentDisposition_RoundTrip(t *testing.T) {
	names := []string{
		`he said "hi".txt`,
		"naïve 文件.pdf",
		"tab\there\r\nnewline.txt",
		"nul\x00byte.bin",
		"emoji 🐈.png",
		"back\\slash'quote.doc",
		"semi;colon,eq=at@.txt",
		"..",
		"%41.txt",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)

			header := download.ContentDisposition(name)
			disposition, params, err := mime.ParseMediaType(header)
			req.NoError(err, header)
			req.Equal("attachment", disposition)
			req.Equal(name, params["filename"])

			for i := 0; i < len(header); i++ {
				c := header[i]
				req.True(c > 0x20 && c < 0x7f || c == ' ', "header byte %q is not printable ASCII", c)
			}
		})
	}
}
