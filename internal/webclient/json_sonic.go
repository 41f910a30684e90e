//go:build sonic

package webclient

import (
	"github.com/bytedance/sonic"
)

var JSONMarshal = sonic.Marshal
var JSONUnmarshal = sonic.Unmarshal
