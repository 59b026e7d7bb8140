package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"plain ids", Key{AppName: "app", UserID: "u1", SessionID: "s1"}, "app:u1:s1"},
		{"separator in user", Key{AppName: "a", UserID: "x:y", SessionID: "z"}, "a:x%3Ay:z"},
		{"separator in session", Key{AppName: "a", UserID: "x", SessionID: "y:z"}, "a:x:y%3Az"},
		{"escape char", Key{AppName: "a", UserID: "x%3Ay", SessionID: "z"}, "a:x%253Ay:z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}
