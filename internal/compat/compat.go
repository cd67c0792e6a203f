// Package compat gates plugin registration on the host's declared version.
package compat

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// CompatibilityError reports an unsupported or unparseable host version.
type CompatibilityError struct {
	msg string
}

func (e *CompatibilityError) Error() string { return e.msg }

func compatErrorf(format string, args ...any) *CompatibilityError {
	return &CompatibilityError{msg: fmt.Sprintf(format, args...)}
}

// versionRE requires a full three-component MAJOR.MINOR.PATCH version;
// shorthand forms like "1.8" are rejected.
var versionRE = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func canonical(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !versionRE.MatchString(trimmed) {
		return "", compatErrorf("invalid semantic version: %s", value)
	}
	return "v" + trimmed, nil
}

// operators are matched longest-first so ">=" is not read as ">".
var operators = []string{">=", "<=", "==", ">", "<"}

func satisfiesToken(version, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return true, nil
	}
	for _, op := range operators {
		if !strings.HasPrefix(token, op) {
			continue
		}
		rhs, err := canonical(token[len(op):])
		if err != nil {
			return false, err
		}
		cmp := semver.Compare(version, rhs)
		switch op {
		case ">=":
			return cmp >= 0, nil
		case "<=":
			return cmp <= 0, nil
		case "==":
			return cmp == 0, nil
		case ">":
			return cmp > 0, nil
		case "<":
			return cmp < 0, nil
		}
	}
	return false, compatErrorf("unsupported spec token: %s", token)
}

// IsSupported reports whether the host version satisfies the conjunction of
// all comparison tokens in spec (comma-separated, e.g. ">=1.8.0,<2.0.0").
func IsSupported(hostVersion, spec string) (bool, error) {
	version, err := canonical(hostVersion)
	if err != nil {
		return false, err
	}
	for _, token := range strings.Split(spec, ",") {
		ok, err := satisfiesToken(version, token)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// AssertSupported fails loudly when the host version is unsupported. It is
// called once at plugin registration; registration must abort on error.
func AssertSupported(hostVersion, spec string) error {
	ok, err := IsSupported(hostVersion, spec)
	if err != nil {
		return err
	}
	if !ok {
		return compatErrorf("OpenClaw version %s is not supported by this plugin (required: %s)", hostVersion, spec)
	}
	return nil
}
