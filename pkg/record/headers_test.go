package record

import (
	"reflect"
	"testing"
)

func TestIsSensitiveHeader(t *testing.T) {
	for _, key := range []string{"Authorization", "authorization", "COOKIE", "X-Api-Key", "Proxy-Authorization"} {
		if !IsSensitiveHeader(key) {
			t.Errorf("%s should be sensitive", key)
		}
	}
	for _, key := range []string{"Content-Type", "X-Trace", ""} {
		if IsSensitiveHeader(key) {
			t.Errorf("%s should not be sensitive", key)
		}
	}
}

func TestRedactHeaders(t *testing.T) {
	in := map[string]string{"Authorization": "Bearer t", "Accept": "*/*"}
	out := RedactHeaders(in)

	want := map[string]string{"Authorization": Redacted, "Accept": "*/*"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("RedactHeaders() = %v, want %v", out, want)
	}
	if in["Authorization"] != "Bearer t" {
		t.Error("input map must not be modified")
	}
	if RedactHeaders(nil) != nil {
		t.Error("nil headers should stay nil")
	}
}
