// Package media handles uploaded pictures.
package media

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/student"
)

const MaxPictureSize = 5 << 20 // 5MB

var (
	// errors
	ErrUnsupportedType = errors.New("unsupported image type: upload a JPEG, PNG, GIF or WebP image")
	ErrTooLarge        = errors.Errorf("the image must not exceed %d MB", MaxPictureSize>>20)
	ErrEmpty           = errors.New("the file is empty")

	// content type -> extension
	pictureTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
)

type Service struct {
	storage  core.FileStorage
	students *student.Service
}

func NewService(storage core.FileStorage, students *student.Service) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(storage, "storage"),
		vala.IsNotNil(students, "students"),
	).CheckAndPanic()

	return &Service{storage: storage, students: students}
}

func fileError(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
}

// UploadProfilePicture stores a picture under a random name and returns its URL.
// When studentID is set, it becomes the profile picture of this student.
func (svc *Service) UploadProfilePicture(ctx context.Context, actor access.Actor, r io.Reader, studentID string) (string, error) {
	if studentID != "" {
		// fail before storing anything
		if _, err := svc.students.Get(ctx, actor, studentID); err != nil {
			return "", err
		}
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxPictureSize+1))
	if err != nil {
		return "", errors.Wrap(err, "reading picture")
	}
	switch {
	case len(data) == 0:
		return "", fileError(ErrEmpty)
	case len(data) > MaxPictureSize:
		return "", fileError(ErrTooLarge)
	}
	ext, ok := pictureTypes[http.DetectContentType(data)]
	if !ok {
		return "", fileError(ErrUnsupportedType)
	}

	url, err := svc.storage.Save(ctx, "profile-pictures/"+uuid.NewString()+ext, bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "saving picture")
	}
	if studentID != "" {
		if _, err = svc.students.SetProfilePicture(ctx, actor, studentID, url); err != nil {
			return "", err
		}
	}
	return url, nil
}
