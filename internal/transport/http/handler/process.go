package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docsort/internal/app"
	"docsort/internal/transport/http/middleware"
	"docsort/internal/transport/http/response"
)

const uploadField = "file"

// Processor is the part of app.ClassifyService the handler needs.
type Processor interface {
	Process(ctx context.Context, up app.Upload) (*app.Result, error)
}

type ProcessHandler struct {
	processor      Processor
	maxUploadBytes int64
	logger         *zap.Logger
}

// ProcessImageRequest is the JSON alternative to a multipart upload.
type ProcessImageRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
}

type ProcessImageResponse struct {
	PredictedLabel string  `json:"predicted_label"`
	Confidence     float64 `json:"confidence"`
	PDFData        string  `json:"pdfData"`
	FolderName     string  `json:"folder_name,omitempty"`
}

// uploadError carries the status and public message for a request the
// handler rejects before the pipeline runs.
type uploadError struct {
	status  int
	message string
}

func NewProcessHandler(processor Processor, maxUploadBytes int64, logger *zap.Logger) *ProcessHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessHandler{processor: processor, maxUploadBytes: maxUploadBytes, logger: logger}
}

// ProcessImage accepts multipart field "file" or a JSON body with a base64
// "image", classifies it and returns the label with a PDF report.
func (h *ProcessHandler) ProcessImage(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	defer func() {
		if form := c.Request.MultipartForm; form != nil {
			_ = form.RemoveAll()
		}
	}()

	up, uerr := h.readUpload(c)
	if uerr != nil {
		response.Error(c, uerr.status, uerr.message)
		return
	}
	up.RequestID = requestID

	result, err := h.processor.Process(c.Request.Context(), up)
	if err != nil {
		kind := app.KindOf(err)
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		}
		if kind.StatusCode() >= http.StatusInternalServerError {
			h.logger.Error("process image failed", fields...)
		} else {
			h.logger.Info("process image rejected", fields...)
		}
		response.Error(c, kind.StatusCode(), app.PublicMessage(err))
		return
	}

	response.OK(c, ProcessImageResponse{
		PredictedLabel: result.Prediction.Label,
		Confidence:     result.Prediction.Confidence,
		PDFData:        base64.StdEncoding.EncodeToString(result.PDF),
		FolderName:     result.Prediction.Category,
	})
}

// readUpload never fails for an absent image. An empty Upload goes to the
// service, which owns the "No file uploaded" rejection.
func (h *ProcessHandler) readUpload(c *gin.Context) (app.Upload, *uploadError) {
	contentType := c.ContentType()
	switch {
	case strings.HasPrefix(contentType, "multipart/"):
		return h.readMultipart(c)
	case contentType == gin.MIMEJSON:
		return h.readJSON(c)
	}
	return app.Upload{}, nil
}

func (h *ProcessHandler) readMultipart(c *gin.Context) (app.Upload, *uploadError) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		switch {
		case errors.Is(err, http.ErrMissingFile):
			return app.Upload{}, nil
		case middleware.IsBodyTooLarge(err):
			return app.Upload{}, h.tooLarge()
		}
		return app.Upload{}, &uploadError{http.StatusBadRequest, "invalid multipart form"}
	}
	if fh.Size > h.maxUploadBytes {
		return app.Upload{}, h.tooLarge()
	}

	data, err := readFormFile(fh)
	if err != nil {
		return app.Upload{}, &uploadError{http.StatusBadRequest, "failed to read uploaded file"}
	}
	return app.Upload{Data: data, Filename: fh.Filename}, nil
}

func (h *ProcessHandler) readJSON(c *gin.Context) (app.Upload, *uploadError) {
	var req ProcessImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if middleware.IsBodyTooLarge(err) {
			return app.Upload{}, h.tooLarge()
		}
		if errors.Is(err, io.EOF) {
			return app.Upload{}, nil
		}
		return app.Upload{}, &uploadError{http.StatusBadRequest, "invalid request payload"}
	}
	if strings.TrimSpace(req.Image) == "" {
		return app.Upload{}, nil
	}

	data, err := decodeBase64Image(req.Image)
	if err != nil {
		return app.Upload{}, &uploadError{http.StatusBadRequest, "image must be base64 encoded"}
	}
	if int64(len(data)) > h.maxUploadBytes {
		return app.Upload{}, h.tooLarge()
	}
	return app.Upload{Data: data, Filename: req.Filename}, nil
}

func (h *ProcessHandler) tooLarge() *uploadError {
	return &uploadError{http.StatusRequestEntityTooLarge, "uploaded file is too large"}
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// decodeBase64Image accepts plain or data-URI base64, padded or not.
func decodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return data, err
}
