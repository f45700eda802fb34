package native

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestResolvePlatform(t *testing.T) {
	tests := []struct {
		name string
		os   string
		arch string
		want PlatformDescriptor
	}{
		{
			name: "windows",
			os:   "Windows 11",
			arch: "amd64",
			want: PlatformDescriptor{
				Platform:        PlatformWindowsX64,
				OS:              OSWindows,
				Arch:            ArchX64,
				LibraryFileName: "contextune_core.dll",
				Directory:       "windows-x64",
				Extension:       ".dll",
			},
		},
		{
			name: "windows any arch",
			os:   "windows",
			arch: "arm64",
			want: PlatformDescriptor{
				Platform:        PlatformWindowsX64,
				OS:              OSWindows,
				Arch:            ArchX64,
				LibraryFileName: "contextune_core.dll",
				Directory:       "windows-x64",
				Extension:       ".dll",
			},
		},
		{
			name: "mac os x aarch64",
			os:   "Mac OS X",
			arch: "aarch64",
			want: PlatformDescriptor{
				Platform:        PlatformMacOSArm64,
				OS:              OSMacOS,
				Arch:            ArchArm64,
				LibraryFileName: "libcontextune_core.dylib",
				Directory:       "macos-aarch64",
				Extension:       ".dylib",
			},
		},
		{
			name: "darwin arm64",
			os:   "darwin",
			arch: "arm64",
			want: PlatformDescriptor{
				Platform:        PlatformMacOSArm64,
				OS:              OSMacOS,
				Arch:            ArchArm64,
				LibraryFileName: "libcontextune_core.dylib",
				Directory:       "macos-aarch64",
				Extension:       ".dylib",
			},
		},
		{
			name: "darwin amd64",
			os:   "darwin",
			arch: "amd64",
			want: PlatformDescriptor{
				Platform:        PlatformMacOSX64,
				OS:              OSMacOS,
				Arch:            ArchX64,
				LibraryFileName: "libcontextune_core.dylib",
				Directory:       "macos-x64",
				Extension:       ".dylib",
			},
		},
		{
			name: "linux",
			os:   " Linux ",
			arch: "x86_64",
			want: PlatformDescriptor{
				Platform:        PlatformLinuxX64,
				OS:              OSLinux,
				Arch:            ArchX64,
				LibraryFileName: "libcontextune_core.so",
				Directory:       "linux-x64",
				Extension:       ".so",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolvePlatform(tc.os, tc.arch)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolvePlatformUnsupported(t *testing.T) {
	for _, tc := range []struct{ os, arch string }{
		{"freebsd", "amd64"},
		{"", "amd64"},
		{"plan9", "arm"},
		{"solaris", ""},
	} {
		_, err := ResolvePlatform(tc.os, tc.arch)
		var unsupported *UnsupportedPlatformError
		require.True(t, errors.As(err, &unsupported), "expected UnsupportedPlatformError for %q/%q, got %v", tc.os, tc.arch, err)
		assert.Equal(t, tc.os, unsupported.OS)
		assert.Equal(t, tc.arch, unsupported.Arch)
	}
}

func TestResolvePlatformCustomBaseName(t *testing.T) {
	d, err := resolvePlatform("linux", "amd64", "engine")
	require.NoError(t, err)
	assert.Equal(t, "libengine.so", d.LibraryFileName)
	assert.Equal(t, "native/linux-x64/libengine.so", d.ResourceKey())

	d, err = resolvePlatform("windows", "amd64", "engine")
	require.NoError(t, err)
	assert.Equal(t, "engine.dll", d.LibraryFileName)
}

func TestResolvePlatformProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		osName := rapid.String().Draw(t, "os")
		archName := rapid.String().Draw(t, "arch")

		d, err := ResolvePlatform(osName, archName)
		lower := strings.ToLower(osName)
		recognized := strings.Contains(lower, "mac") || strings.Contains(lower, "darwin") ||
			strings.Contains(lower, "win") || strings.Contains(lower, "linux")
		if !recognized {
			var unsupported *UnsupportedPlatformError
			if !errors.As(err, &unsupported) {
				t.Fatalf("expected UnsupportedPlatformError for %q, got %v", osName, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error for %q/%q: %v", osName, archName, err)
		}
		if d != describe(d.Platform, DefaultLibraryBaseName) {
			t.Fatalf("descriptor for %q/%q is not canonical: %+v", osName, archName, d)
		}
		if !strings.HasSuffix(d.LibraryFileName, d.Extension) {
			t.Fatalf("library %q does not end in %q", d.LibraryFileName, d.Extension)
		}
	})
}
