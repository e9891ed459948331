package driving

import "context"

// MediaService uploads media on behalf of an owner so it can be attached to posts.
type MediaService interface {
	// Upload sends data to the provider with the owner's credential and
	// returns the provider media ID.
	Upload(ctx context.Context, req MediaUploadRequest) (*MediaUploadResponse, error)
}

// MediaUploadRequest is a media upload on behalf of OwnerID.
type MediaUploadRequest struct {
	OwnerID  string
	Data     []byte
	MimeType string
	Category string
}

// MediaUploadResponse carries the provider's media ID.
// @Description Uploaded media reference
type MediaUploadResponse struct {
	MediaID string `json:"media_id" example:"1460323737035677698"`
}
