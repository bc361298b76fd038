package errors

import (
	"runtime"
	"strings"
)

const selfPackage = "/internal/errors."

// packageComponents maps internal package names to component names where
// the two differ. Other internal packages report under their own name.
var packageComponents = map[string]string{
	"conf": "configuration",
}

// callerComponent names the first internal package on the stack outside
// this one.
func callerComponent() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, selfPackage) {
			if c := componentOf(frame.Function); c != "" {
				return c
			}
		}
		if !more {
			return ""
		}
	}
}

// componentOf extracts the package after /internal/ from a function name
// such as github.com/x/y/internal/encode.(*MP4Encoder).Encode.
func componentOf(funcName string) string {
	_, rest, ok := strings.Cut(funcName, "/internal/")
	if !ok {
		return ""
	}
	pkg := rest
	if i := strings.IndexAny(pkg, "./"); i >= 0 {
		pkg = pkg[:i]
	}
	if pkg == "" || pkg == "testutil" {
		return ""
	}
	if c, ok := packageComponents[pkg]; ok {
		return c
	}
	return pkg
}
