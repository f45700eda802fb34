package native

import (
	"runtime"
	"strings"
)

// DefaultLibraryBaseName is the engine library name without platform prefix or extension.
const DefaultLibraryBaseName = "contextune_core"

// OSFamily identifies the operating system family of a platform.
type OSFamily int

const (
	OSWindows OSFamily = iota
	OSMacOS
	OSLinux
)

func (f OSFamily) String() string {
	switch f {
	case OSWindows:
		return "windows"
	case OSMacOS:
		return "macos"
	case OSLinux:
		return "linux"
	default:
		return "unknown"
	}
}

// Architecture identifies the CPU architecture of a platform.
type Architecture int

const (
	ArchX64 Architecture = iota
	ArchArm64
)

func (a Architecture) String() string {
	switch a {
	case ArchX64:
		return "x64"
	case ArchArm64:
		return "aarch64"
	default:
		return "unknown"
	}
}

// Platform is the closed set of platforms the engine ships for.
type Platform int

const (
	PlatformWindowsX64 Platform = iota
	PlatformMacOSX64
	PlatformMacOSArm64
	PlatformLinuxX64
)

func (p Platform) String() string {
	return p.Directory()
}

// Directory returns the platform directory segment used by bundle and plugin layouts.
func (p Platform) Directory() string {
	switch p {
	case PlatformWindowsX64:
		return "windows-x64"
	case PlatformMacOSX64:
		return "macos-x64"
	case PlatformMacOSArm64:
		return "macos-aarch64"
	case PlatformLinuxX64:
		return "linux-x64"
	default:
		return "unknown"
	}
}

// PlatformDescriptor carries every platform fact downstream code needs.
type PlatformDescriptor struct {
	Platform        Platform
	OS              OSFamily
	Arch            Architecture
	LibraryFileName string
	Directory       string
	Extension       string
}

// ResourceKey returns the bundle path of the library for this platform.
func (d PlatformDescriptor) ResourceKey() string {
	return "native/" + d.Directory + "/" + d.LibraryFileName
}

// ResolvePlatform maps raw OS and architecture identifiers to a descriptor for the
// default engine library.
func ResolvePlatform(osName, archName string) (PlatformDescriptor, error) {
	return resolvePlatform(osName, archName, DefaultLibraryBaseName)
}

// CurrentPlatform resolves the descriptor for the running process.
func CurrentPlatform() (PlatformDescriptor, error) {
	return ResolvePlatform(runtime.GOOS, runtime.GOARCH)
}

func resolvePlatform(osName, archName, baseName string) (PlatformDescriptor, error) {
	osID := strings.ToLower(strings.TrimSpace(osName))
	archID := strings.ToLower(strings.TrimSpace(archName))

	var platform Platform
	switch {
	// "darwin" contains "win", so macOS has to be matched first.
	case strings.Contains(osID, "mac") || strings.Contains(osID, "darwin"):
		if strings.Contains(archID, "aarch64") || strings.Contains(archID, "arm") {
			platform = PlatformMacOSArm64
		} else {
			platform = PlatformMacOSX64
		}
	case strings.Contains(osID, "win"):
		platform = PlatformWindowsX64
	case strings.Contains(osID, "linux"):
		platform = PlatformLinuxX64
	default:
		return PlatformDescriptor{}, &UnsupportedPlatformError{OS: osName, Arch: archName}
	}

	return describe(platform, baseName), nil
}

func describe(p Platform, baseName string) PlatformDescriptor {
	d := PlatformDescriptor{
		Platform:  p,
		Directory: p.Directory(),
	}
	switch p {
	case PlatformWindowsX64:
		d.OS, d.Arch, d.Extension = OSWindows, ArchX64, ".dll"
	case PlatformMacOSX64:
		d.OS, d.Arch, d.Extension = OSMacOS, ArchX64, ".dylib"
	case PlatformMacOSArm64:
		d.OS, d.Arch, d.Extension = OSMacOS, ArchArm64, ".dylib"
	case PlatformLinuxX64:
		d.OS, d.Arch, d.Extension = OSLinux, ArchX64, ".so"
	}
	prefix := "lib"
	if d.OS == OSWindows {
		prefix = ""
	}
	d.LibraryFileName = prefix + baseName + d.Extension
	return d
}
