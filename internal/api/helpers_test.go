package api

import (
	"encoding/json"
	"net/http"
)

// jsonDecode decodes a response body into v.
func jsonDecode(resp *http.Response, v interface{}) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
