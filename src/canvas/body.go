package canvas

import (
	"bytes"
	"io"
	"net/http"
)

// Reads up to n bytes of the body and then restores it, unread, on res.
func peekBody(res *http.Response, n int64) string {
	if res.Body == nil {
		return ""
	}
	head, _ := io.ReadAll(io.LimitReader(res.Body, n))
	res.Body = readCloser{
		Reader: io.MultiReader(bytes.NewReader(head), res.Body),
		Closer: res.Body,
	}
	return string(head)
}

func drainAndClose(res *http.Response) {
	if res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64*1024))
	res.Body.Close()
}

type readCloser struct {
	io.Reader
	io.Closer
}
