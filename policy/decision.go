package policy

import (
	"encoding/base64"
	"net/http"

	"edge-resizer/edge"
)

const (
	OutcomePassthrough      = "passthrough"
	OutcomeInline           = "inline"
	OutcomeRedirect         = "redirect"
	OutcomeErrorPassthrough = "error_passthrough"
)

// Reason explains why a response was passed through untouched.
type Reason string

const (
	ReasonStatus      Reason = "status"
	ReasonNotFound    Reason = "not_found"
	ReasonContentType Reason = "content_type"
	ReasonNotResize   Reason = "not_resize"

	// ReasonResized labels inline and redirect decisions.
	ReasonResized Reason = "resized"
)

// Decision is one of Passthrough, InlineServe or Redirect.
type Decision interface {
	Outcome() string
}

type Passthrough struct {
	Reason Reason
}

type InlineServe struct {
	Body        []byte
	ContentType string
}

// Redirect stores Body under Key and points the client at it.
type Redirect struct {
	Key         string
	ContentType string
	Body        []byte
}

func (Passthrough) Outcome() string { return OutcomePassthrough }
func (InlineServe) Outcome() string { return OutcomeInline }
func (Redirect) Outcome() string    { return OutcomeRedirect }

// Location is the path the client is redirected to.
func (r Redirect) Location() string {
	return "/" + r.Key
}

// Apply mutates resp according to decision. A Passthrough leaves it as is.
func Apply(decision Decision, resp *edge.Response) {
	switch d := decision.(type) {
	case InlineServe:
		ensureHeaders(resp)
		resp.Status = http.StatusOK
		resp.StatusDescription = http.StatusText(http.StatusOK)
		resp.SetBody(base64.StdEncoding.EncodeToString(d.Body), edge.BodyEncodingBase64)
		resp.Headers.Set("Content-Type", d.ContentType)
		delete(resp.Headers, "content-length")

	case Redirect:
		ensureHeaders(resp)
		resp.Status = http.StatusMovedPermanently
		resp.StatusDescription = http.StatusText(http.StatusMovedPermanently)
		resp.SetBody("", "")
		resp.Headers.Set("Location", d.Location())
		delete(resp.Headers, "content-length")
		delete(resp.Headers, "content-type")
	}
}

func ensureHeaders(resp *edge.Response) {
	if resp.Headers == nil {
		resp.Headers = edge.Headers{}
	}
}
