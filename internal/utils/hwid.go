package utils

import (
	"github.com/denisbrodbeck/machineid"
)

// HWID is an anonymous, app-scoped identifier of this machine.
// The raw machine id never leaves the host, only its HMAC keyed by the app name.
var HWID = func() string {
	id, err := machineid.ProtectedID("supdater")
	if err != nil {
		return "unknown"
	}
	return id
}()
