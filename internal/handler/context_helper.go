package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/middleware"
	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

const defaultMaxUploadBytes int64 = 10 << 20

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext builds the audit identity of the authenticated caller.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Actor{}, false
	}
	return models.Actor{
		UserID:    claims.UserID,
		FullName:  claims.FullName,
		Role:      claims.Role,
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
	}
	return nil
}

// readUpload loads one multipart file into memory, enforcing the size cap.
func readUpload(header *multipart.FileHeader, limit int64) (models.UploadedFile, error) {
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	if header.Size > limit {
		return models.UploadedFile{}, appErrors.Clone(appErrors.ErrPayloadTooLarge, header.Filename+" exceeds the upload limit")
	}
	file, err := header.Open()
	if err != nil {
		return models.UploadedFile{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return models.UploadedFile{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	if int64(len(data)) > limit {
		return models.UploadedFile{}, appErrors.Clone(appErrors.ErrPayloadTooLarge, header.Filename+" exceeds the upload limit")
	}
	return models.UploadedFile{Filename: header.Filename, Data: data}, nil
}

// optionalUpload returns nil when the form carries no file under field.
func optionalUpload(c *gin.Context, field string, limit int64) (*models.UploadedFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form")
	}
	file, err := readUpload(header, limit)
	if err != nil {
		return nil, err
	}
	return &file, nil
}
