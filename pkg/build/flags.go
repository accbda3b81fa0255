// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the denoiser binary by the
// linker:
//
//	go build -ldflags "-X denoiser/pkg/build.buildName=denoiser \
//	  -X denoiser/pkg/build.buildVersion=0.3.0 \
//	  -X denoiser/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X denoiser/pkg/build.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Development builds run without the flags and report "dev" values.
package build

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

const Description = "Record, clean up and re-encode voice clips"

// Info is the build metadata of the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String renders the version line shown by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = devInfo()
)

func devInfo() Info {
	return Info{
		Name:    "denoiser",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
}

// Initialize copies the linker values into the build info. Every missing value
// is reported; the info keeps its development defaults in that case.
func Initialize() error {
	var result *multierror.Error
	if buildName == "" {
		result = multierror.Append(result, fmt.Errorf("BuildName is required"))
	}
	if buildTime == "" {
		result = multierror.Append(result, fmt.Errorf("BuildTime is required"))
	}
	if buildCommit == "" {
		result = multierror.Append(result, fmt.Errorf("BuildCommit is required"))
	}
	if buildVersion == "" {
		result = multierror.Append(result, fmt.Errorf("BuildVersion is required"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	buildInfo = Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	return nil
}

// Get returns the current build info.
func Get() Info {
	return buildInfo
}
