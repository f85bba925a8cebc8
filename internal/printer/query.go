package printer

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// applyQuery narrows a JSON body to the value at path. Scalars are returned
// unquoted. The second result reports whether the output is JSON.
func applyQuery(body []byte, path string) ([]byte, bool, error) {
	if path == "" {
		return body, false, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, false, fmt.Errorf("query %q needs a JSON response body", path)
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return nil, false, fmt.Errorf("query %q matched nothing", path)
	}
	switch res.Type {
	case gjson.JSON:
		return []byte(res.Raw), true, nil
	case gjson.String:
		return []byte(res.String()), false, nil
	default:
		return []byte(res.Raw), false, nil
	}
}
