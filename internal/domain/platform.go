package domain

// Platform identifies the social network a media URL belongs to.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"

	// PlatformUnknown is returned for URLs that match no known platform.
	PlatformUnknown Platform = ""
)

// String returns the string representation of the Platform.
func (p Platform) String() string {
	return string(p)
}

// Known returns true if the platform is one of the supported networks.
func (p Platform) Known() bool {
	switch p {
	case PlatformYouTube, PlatformFacebook, PlatformInstagram, PlatformTikTok:
		return true
	}
	return false
}
