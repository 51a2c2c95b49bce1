//go:build !linux

package diag

import "errors"

func uname() (Uname, error) {
	return Uname{}, errors.New("diag: uname not supported on this platform")
}
