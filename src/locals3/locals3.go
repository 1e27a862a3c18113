package locals3

import (
	"encoding/xml"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cdil-bc/canvas-discussions/src/logging"
)

/*
A tiny stand-in for S3 that keeps objects in a local folder, for trying out
S3 exports without an account. It understands just enough of the protocol
for the export uploader: path-style PUT of buckets and objects, and GET of
objects. Requests aren't authenticated.

Object keys are flattened into one file per key, with "/" stored as "~".
*/
func Handler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket, key := bucketKey(r)
		logging.Debug().Str("method", r.Method).Str("bucket", bucket).Str("key", key).Msg("local s3 request")

		if bucket == "" || bucket == "." || bucket == ".." {
			writeError(w, http.StatusBadRequest, "InvalidBucketName", "invalid bucket name")
			return
		}
		bucketDir := filepath.Join(dir, bucket)

		switch r.Method {
		case http.MethodPut:
			if key == "" {
				if err := os.MkdirAll(bucketDir, fs.ModePerm); err != nil {
					writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
					return
				}
				w.Header().Set("Location", "/"+bucket)
				return
			}

			if _, err := os.Stat(bucketDir); err != nil {
				writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
				return
			}
			if err := os.WriteFile(filepath.Join(bucketDir, key), body, 0644); err != nil {
				writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
				return
			}
		case http.MethodGet:
			content, err := os.ReadFile(filepath.Join(bucketDir, key))
			if err != nil {
				writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
				return
			}
			w.Write(content)
		default:
			writeError(w, http.StatusNotImplemented, "NotImplemented", r.Method+" is not supported")
		}
	})
}

func bucketKey(r *http.Request) (string, string) {
	p := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(p, "/")
	key = strings.ReplaceAll(key, "/", "~")
	if key == ".." || key == "." {
		key = ""
	}
	return bucket, key
}

type s3Error struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	xml.NewEncoder(w).Encode(s3Error{Code: code, Message: message})
}
