package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"

// Media part names used by the multipart upload and update forms.
const (
	MediaVideo = "video"
	MediaAudio = "audio"
)
