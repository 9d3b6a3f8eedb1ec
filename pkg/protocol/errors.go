package protocol

import "errors"

var (
	errCompletedWithError = errors.New("protocol: status completed must not carry an error")
	errFailedWithoutError = errors.New("protocol: status failed must carry an error")
)
