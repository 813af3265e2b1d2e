package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tbourn/go-recipes-backend/internal/storage"
)

// Storage folders for uploaded images.
const (
	recipeImageFolder = "recipes"
	avatarFolder      = "avatars"
)

var dataURIRE = regexp.MustCompile(`^data:image/([a-zA-Z0-9.+-]+);base64,`)

// Image is a decoded data-URI upload.
type Image struct {
	Data        []byte
	Format      string // png, jpeg or gif
	ContentType string
}

// Ext returns the file extension used for the stored object.
func (i *Image) Ext() string {
	if i.Format == "jpeg" {
		return "jpg"
	}
	return i.Format
}

// DecodeImage parses a `data:image/<ext>;base64,<payload>` string. The
// decoded payload must not exceed maxBytes and must be a PNG, JPEG or GIF.
func DecodeImage(dataURI string, maxBytes int64) (*Image, error) {
	s := strings.TrimSpace(dataURI)
	if s == "" {
		return nil, errors.New("image must not be empty")
	}
	loc := dataURIRE.FindStringIndex(s)
	if loc == nil {
		return nil, errors.New("image must be a data URI of the form data:image/<ext>;base64,<data>")
	}
	payload := s[loc[1]:]

	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, tooLarge(maxBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.New("image payload is not valid base64")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, tooLarge(maxBytes)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New("upload a valid image; the file is either not an image or corrupted")
	}
	return &Image{Data: data, Format: format, ContentType: "image/" + format}, nil
}

func tooLarge(maxBytes int64) error {
	if maxBytes >= 1<<20 && maxBytes%(1<<20) == 0 {
		return fmt.Errorf("image must not exceed %d MB", maxBytes>>20)
	}
	return fmt.Errorf("image must not exceed %d bytes", maxBytes)
}

// putImage stores img under folder with a fresh key and returns the key.
func putImage(ctx context.Context, store storage.Store, folder string, img *Image) (string, error) {
	key := fmt.Sprintf("%s/%s.%s", folder, uuid.NewString(), img.Ext())
	if err := store.Put(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}

// discardImage deletes key, logging failures. Empty keys are ignored.
func discardImage(ctx context.Context, store storage.Store, key string) {
	if key == "" || store == nil {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("key", key).Msg("delete stored image failed")
	}
}
