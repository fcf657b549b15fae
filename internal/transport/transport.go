package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Requester is the transport function every provider call goes through.
type Requester interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// ResponseError is returned for any non-2xx response.
type ResponseError struct {
	Method   string
	URL      string
	Response *Response
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: status=%d", e.Method, e.URL, e.Response.Status)
}

// Form builds a form-encoded POST.
func Form(rawURL string, form url.Values, header http.Header) Request {
	h := cloneHeader(header)
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return Request{Method: http.MethodPost, URL: rawURL, Header: h, Body: []byte(form.Encode())}
}

// JSON builds a JSON request with the given method.
func JSON(method, rawURL string, body any, header http.Header) (Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return Request{}, fmt.Errorf("marshal body: %w", err)
	}
	h := cloneHeader(header)
	h.Set("Content-Type", "application/json")
	return Request{Method: method, URL: rawURL, Header: h, Body: b}, nil
}

func BasicAuth(user, pass string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
	return h
}

func BearerAuth(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
