package domain

// Platform identifies a network operating system family. Records, advisories
// and devices are always matched within a single platform; cross-platform
// matches are a defect.
type Platform string

const (
	PlatformIOSXE Platform = "IOS-XE"
	PlatformIOSXR Platform = "IOS-XR"
	PlatformASA   Platform = "ASA"
	PlatformFTD   Platform = "FTD"
	PlatformNXOS  Platform = "NX-OS"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{
	PlatformIOSXE,
	PlatformIOSXR,
	PlatformASA,
	PlatformFTD,
	PlatformNXOS,
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}
