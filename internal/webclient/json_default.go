//go:build !sonic

package webclient

import (
	"github.com/goccy/go-json"
)

var JSONMarshal = json.Marshal
var JSONUnmarshal = json.Unmarshal
