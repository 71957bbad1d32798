package controller

import "errors"

var (
	ErrUnknownDevice  = errors.New("controller: unknown device")
	ErrNotSettable    = errors.New("controller: property is not settable")
	ErrWildcardDomain = errors.New("controller: cannot publish to the wildcard domain")

	errNoDescription = errors.New("controller: device description not received yet")
)
