// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package common

import (
	"fmt"
	"runtime"
)

func GetTraceInfo() string {
	pc, fileName, fileLine, ok := runtime.Caller(2)
	details := runtime.FuncForPC(pc)
	if ok && details != nil {
		return fmt.Sprintf("func %s() at %s:%d", details.Name(), fileName, fileLine)
	}
	return ""
}
