package proofstore

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore keeps payment proofs in a Cloudinary folder; the asset
// public ID is the reference.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore builds a store from a cloudinary:// URL.
func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	if folder == "" {
		folder = "payment-proofs"
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Store(ctx context.Context, file io.Reader, filename string) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:           s.folder,
		FilenameOverride: filename,
	})
	if err != nil {
		return "", fmt.Errorf("upload payment proof: %w", err)
	}
	if result.PublicID == "" {
		return "", fmt.Errorf("upload payment proof: empty public id")
	}
	return result.PublicID, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, ref string) error {
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: ref}); err != nil {
		return fmt.Errorf("delete payment proof: %w", err)
	}
	return nil
}
