// Package webclient holds the HTTP client shared by the self-update and statistics calls.
package webclient

import (
	"time"

	"github.com/imroc/req/v3"

	"github.com/sershocode/supdater/internal/utils"
	"github.com/sershocode/supdater/internal/version"
)

const (
	HeaderVersion  = "X-SUpdater-Version"
	HeaderDeviceId = "X-SUpdater-Device-Id"
)

// New returns a client with the common headers and JSON codec set.
// Requests are not retried: callers decide what a failed call means.
func New() *req.Client {
	return req.C().
		SetUserAgent(version.UserAgent()).
		SetCommonHeader(HeaderVersion, version.Version).
		SetCommonHeader(HeaderDeviceId, utils.HWID).
		SetTLSHandshakeTimeout(15 * time.Second).
		SetJsonMarshal(JSONMarshal).
		SetJsonUnmarshal(JSONUnmarshal)
}
