// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the audioled binary at link
// time. Release builds set every field with -ldflags, for example:
//
//	go build -ldflags "-X audioled/pkg/build.buildVersion=0.3.0 \
//	    -X audioled/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X audioled/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds run with the defaults below; Initialize reports which
// fields were not stamped so the caller can decide whether that matters.
package build

import (
	"errors"
	"fmt"
)

const (
	defaultName        = "audioled"
	defaultDescription = "Drive an addressable LED strip from live audio loudness"
	devValue           = "dev"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the version line printed by --version.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        devValue,
		Commit:      devValue,
		Version:     devValue,
	}
}

// Initialize copies the ldflags variables into the build info. Fields that
// were not stamped keep their development defaults and are reported in the
// returned error, which is nil for a fully stamped release build.
func Initialize() error {
	var errs []error

	buildInfo = defaultInfo()
	if buildName != "" {
		buildInfo.Name = buildName
	}
	if buildTime == "" {
		errs = append(errs, errors.New("BuildTime is not set"))
	} else {
		buildInfo.Time = buildTime
	}
	if buildCommit == "" {
		errs = append(errs, errors.New("BuildCommit is not set"))
	} else {
		buildInfo.Commit = buildCommit
	}
	if buildVersion == "" {
		errs = append(errs, errors.New("BuildVersion is not set"))
	} else {
		buildInfo.Version = buildVersion
	}

	return errors.Join(errs...)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildInfo
}
