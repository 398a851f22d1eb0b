package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bulkmeta/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the shared
// envelope. Errors become failure envelopes; everything else is data.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.Failure(body.Code, body.Message, body.Details), nil
	}
	return response.Wrap(v), nil
}
