package application

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"

	"github.com/prernathite123/SchoolManagement/config"
	repo "github.com/prernathite123/SchoolManagement/internal/domain/repository"
	"github.com/prernathite123/SchoolManagement/pkg/helpers"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image exceeds the size limit")
	ErrStorageDisabled  = errors.New("image storage is not configured")
)

const maxAvatarBytes = 5 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UserService covers the self-service profile surface.
type UserService struct {
	Repo   repo.UserRepository
	GCS    *storage.Client
	Cfg    *config.Config
	Logger *logrus.Logger
}

func NewUserService(r repo.UserRepository, gcs *storage.Client, cfg *config.Config, logger *logrus.Logger) *UserService {
	return &UserService{Repo: r, GCS: gcs, Cfg: cfg, Logger: logger}
}

func (s *UserService) Profile(ctx context.Context, userID string) (*SanitizedUser, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	out := Sanitize(u)
	return &out, nil
}

type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// UpdateProfile lets a user edit their own name and phone. Email, role
// and account flags are admin territory.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*SanitizedUser, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	out := Sanitize(u)
	return &out, nil
}

// UploadAvatar stores the uploaded image in Cloud Storage and records its
// public URL on the profile. Object names embed the user ID and a
// timestamp so stale CDN copies of an older avatar never shadow the new
// one.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, file *multipart.FileHeader) (*SanitizedUser, error) {
	if s.GCS == nil || s.Cfg.GCSBucket == "" {
		return nil, ErrStorageDisabled
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if file.Size > maxAvatarBytes {
		return nil, ErrImageTooLarge
	}
	contentType := file.Header.Get("Content-Type")
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		// some clients only set a sensible filename
		ext = strings.ToLower(filepath.Ext(file.Filename))
		if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".webp" {
			return nil, ErrUnsupportedImage
		}
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	objectPath := fmt.Sprintf("avatars/%s/%d%s", userID, time.Now().UnixNano(), ext)
	url, err := helpers.UploadImageToGCS(ctx, s.GCS, s.Cfg.GCSBucket, objectPath, contentType, src)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Error("avatar upload failed")
		return nil, err
	}

	u.ProfileImage = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	out := Sanitize(u)
	return &out, nil
}

// Children returns the student accounts linked to a parent.
func (s *UserService) Children(ctx context.Context, parentID string) ([]SanitizedUser, error) {
	children, err := s.Repo.ChildrenOf(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]SanitizedUser, 0, len(children))
	for _, c := range children {
		out = append(out, Sanitize(c))
	}
	return out, nil
}
