package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// ResponseBuffer captures a response so it can be inspected before it is sent.
type ResponseBuffer interface {
	http.ResponseWriter
	Status() int
	Body() []byte
	Flush(w http.ResponseWriter) error
}

type responseBuffer struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func NewResponseBuffer() ResponseBuffer {
	return &responseBuffer{header: http.Header{}}
}

// Status returns the captured status, 200 if none was written.
func (resp *responseBuffer) Status() int {
	if resp.status == 0 {
		return http.StatusOK
	}
	return resp.status
}

func (resp *responseBuffer) Header() http.Header {
	return resp.header
}

func (resp *responseBuffer) Body() []byte {
	return resp.body.Bytes()
}

func (resp *responseBuffer) Write(body []byte) (int, error) {
	return resp.body.Write(body)
}

func (resp *responseBuffer) WriteHeader(statusCode int) {
	if resp.status == 0 {
		resp.status = statusCode
	}
}

func (resp *responseBuffer) Flush(w http.ResponseWriter) error {
	header := w.Header()
	for key, value := range resp.header {
		header[key] = value
	}
	w.WriteHeader(resp.Status())
	_, err := w.Write(resp.body.Bytes())
	return err
}

// FlushDetail sends a successful captured response as is. Failures are sent as a
// {"detail": ...} JSON body carrying the captured plain text message.
func FlushDetail(w http.ResponseWriter, r *http.Request, resp ResponseBuffer) error {
	status := resp.Status()
	if status < http.StatusBadRequest {
		return resp.Flush(w)
	}
	msg := strings.TrimSpace(string(resp.Body()))
	var quoted string
	if json.Unmarshal([]byte(msg), &quoted) == nil {
		msg = quoted
	}
	if msg == "" || strings.HasPrefix(msg, "{") {
		msg = http.StatusText(status)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{Detail: msg})
	return nil
}
