// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package api

import (
	"fmt"
	"strings"
)

type ErrApiRequestFailed struct {
	errorMessage string
}

func (apiErr ErrApiRequestFailed) Error() string {
	return strings.Replace(
		apiErr.errorMessage, `\n`, "\n", -1)
}

type ErrUnexpectedResponseType struct {
	responseType string
}

func (err ErrUnexpectedResponseType) Error() string {
	return fmt.Sprintf("unexpected response type %s", err.responseType)
}
