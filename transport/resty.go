package transport

import (
	"net/http"

	"github.com/go-resty/resty/v2"
)

// NewResty returns a Doer that executes requests through a resty client.
// Responses are returned unparsed, so the body is still readable by the
// caller. A nil client gets resty defaults.
func NewResty(client *resty.Client) Doer {
	if client == nil {
		client = resty.New()
	}
	return &restyDoer{client: client}
}

type restyDoer struct {
	client *resty.Client
}

func (d *restyDoer) Do(req *http.Request) (*http.Response, error) {
	r := d.client.R().
		SetContext(req.Context()).
		SetDoNotParseResponse(true)

	r.SetHeaderMultiValues(req.Header)
	if req.Body != nil && req.Body != http.NoBody {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL.String())
	if err != nil {
		if resp != nil && resp.RawResponse != nil && resp.RawResponse.Body != nil {
			resp.RawResponse.Body.Close()
		}
		return nil, err
	}
	return resp.RawResponse, nil
}
