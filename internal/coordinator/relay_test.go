package coordinator

import (
	"testing"

	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteSender(t *testing.T) {
	const id = models.ID(77)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "replaces claimed sender", in: `{"sender":"1","a":1}`, want: `{"sender":"77","a":1}`},
		{name: "replaces numeric sender", in: `{"sender":12345,"a":[1,2]}`, want: `{"sender":"77","a":[1,2]}`},
		{name: "replaces object sender", in: `{"sender":{"id":1},"a":"x"}`, want: `{"sender":"77","a":"x"}`},
		{name: "prepends when missing", in: `{"a":1,"b":{"sender":"9"}}`, want: `{"sender":"77","a":1,"b":{"sender":"9"}}`},
		{name: "rejects later sender", in: `{"a":1,"sender":"9"}`, wantErr: true},
		{name: "rejects duplicate sender", in: `{"sender":"1","sender":"9"}`, wantErr: true},
		{name: "sender only", in: `{"sender":"1"}`, want: `{"sender":"77"}`},
		{name: "empty object", in: `{}`, want: `{"sender":"77"}`},
		{name: "empty object with whitespace", in: `{ } `, want: `{"sender":"77"}`},
		{name: "whitespace", in: ` { "sender" : "1" , "a" : 1 }`, want: `{"sender":"77", "a" : 1 }`},
		{name: "array", in: `[1,2]`, wantErr: true},
		{name: "string", in: `"hello"`, wantErr: true},
		{name: "garbage", in: `hello`, wantErr: true},
		{name: "truncated", in: `{`, wantErr: true},
		{name: "truncated sender", in: `{"sender":`, wantErr: true},
		{name: "truncated key", in: `{"a"`, wantErr: true},
		{name: "truncated value", in: `{"a":1`, wantErr: true},
		{name: "missing close", in: `{"sender":"1","a":1`, wantErr: true},
		{name: "trailing data", in: `{"a":1}{"sender":"9"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := rewriteSender([]byte(tt.in), id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}
