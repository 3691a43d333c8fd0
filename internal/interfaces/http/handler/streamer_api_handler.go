package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/internal/application/usecase"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/service"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/valueobject"
	"github.com/dreschagin/kvm-streamer-api/internal/interfaces/http/middleware"
	"github.com/dreschagin/kvm-streamer-api/internal/interfaces/http/response"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

const defaultPreviewQuality = 80

// StreamerAPIHandler обрабатывает API запросы стримера
type StreamerAPIHandler struct {
	getStateUC       *usecase.GetStreamerStateUseCase
	takeSnapshotUC   *usecase.TakeSnapshotUseCase
	removeSnapshotUC *usecase.RemoveSnapshotUseCase
	getOCRInfoUC     *usecase.GetOCRInfoUseCase
	logger           *logger.Logger
}

// NewStreamerAPIHandler создает новый handler
func NewStreamerAPIHandler(
	getStateUC *usecase.GetStreamerStateUseCase,
	takeSnapshotUC *usecase.TakeSnapshotUseCase,
	removeSnapshotUC *usecase.RemoveSnapshotUseCase,
	getOCRInfoUC *usecase.GetOCRInfoUseCase,
	logger *logger.Logger,
) *StreamerAPIHandler {
	return &StreamerAPIHandler{
		getStateUC:       getStateUC,
		takeSnapshotUC:   takeSnapshotUC,
		removeSnapshotUC: removeSnapshotUC,
		getOCRInfoUC:     getOCRInfoUC,
		logger:           logger,
	}
}

// GetState возвращает состояние стримера (GET /streamer)
func (h *StreamerAPIHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.getStateUC.Execute(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, state)
}

// TakeSnapshot возвращает кадр, его превью или распознанный текст (GET /streamer/snapshot)
func (h *StreamerAPIHandler) TakeSnapshot(w http.ResponseWriter, r *http.Request) {
	cmd, err := parseSnapshotQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.takeSnapshotUC.Execute(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	for _, header := range res.Headers {
		w.Header().Set(header.Name, header.Value)
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

// RemoveSnapshot удаляет сохраненный кадр (DELETE /streamer/snapshot)
func (h *StreamerAPIHandler) RemoveSnapshot(w http.ResponseWriter, r *http.Request) {
	h.removeSnapshotUC.Execute(r.Context())
	response.WriteJSON(w, http.StatusOK, nil)
}

// GetOCR возвращает возможности OCR (GET /streamer/ocr)
func (h *StreamerAPIHandler) GetOCR(w http.ResponseWriter, r *http.Request) {
	info, err := h.getOCRInfoUC.Execute(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, info)
}

// parseSnapshotQuery разбирает все параметры до начала работы.
// Параметры OCR и превью проверяются, только когда выбран соответствующий режим
func parseSnapshotQuery(q url.Values) (usecase.TakeSnapshotCommand, error) {
	var cmd usecase.TakeSnapshotCommand
	var err error

	if cmd.Save, err = queryBool(q, "save", false); err != nil {
		return cmd, err
	}
	if cmd.Load, err = queryBool(q, "load", false); err != nil {
		return cmd, err
	}
	if cmd.AllowOffline, err = queryBool(q, "allow_offline", false); err != nil {
		return cmd, err
	}

	ocr, err := queryBool(q, "ocr", false)
	if err != nil {
		return cmd, err
	}
	preview, err := queryBool(q, "preview", false)
	if err != nil {
		return cmd, err
	}
	cmd.Mode = valueobject.ResolveOutputMode(ocr, preview)

	switch cmd.Mode {
	case valueobject.OutputOCR:
		cmd.OCRLangs = q.Get("ocr_langs")
		if cmd.OCRCrop, err = parseCrop(q); err != nil {
			return cmd, err
		}

	case valueobject.OutputPreview:
		if cmd.PreviewBox, err = parsePreviewBox(q); err != nil {
			return cmd, err
		}
	}

	return cmd, nil
}

func parseCrop(q url.Values) (valueobject.CropRect, error) {
	crop := valueobject.FullFrame()
	edges := []struct {
		name  string
		value *int
	}{
		{name: "ocr_left", value: &crop.Left},
		{name: "ocr_top", value: &crop.Top},
		{name: "ocr_right", value: &crop.Right},
		{name: "ocr_bottom", value: &crop.Bottom},
	}

	for _, edge := range edges {
		if !q.Has(edge.name) {
			continue
		}
		value, err := service.ValidNumber(q.Get(edge.name))
		if err != nil {
			return crop, err
		}
		// За пределами int32 координата все равно обрезается по краю кадра
		*edge.value = int(math.Max(math.Min(value, math.MaxInt32), math.MinInt32))
	}
	return crop, nil
}

func parsePreviewBox(q url.Values) (valueobject.PreviewBox, error) {
	box := valueobject.PreviewBox{Quality: defaultPreviewQuality}
	var err error

	if q.Has("preview_max_width") {
		if box.MaxWidth, err = service.ValidIntF0(q.Get("preview_max_width")); err != nil {
			return box, err
		}
	}
	if q.Has("preview_max_height") {
		if box.MaxHeight, err = service.ValidIntF0(q.Get("preview_max_height")); err != nil {
			return box, err
		}
	}
	if q.Has("preview_quality") {
		if box.Quality, err = service.ValidStreamQuality(q.Get("preview_quality")); err != nil {
			return box, err
		}
	}
	return box, nil
}

func queryBool(q url.Values, name string, def bool) (bool, error) {
	if !q.Has(name) {
		return def, nil
	}
	return service.ValidBool(q.Get(name))
}

func (h *StreamerAPIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.WriteError(w, http.StatusBadRequest, response.KindValidation, validationErr.Error())

	case errors.Is(err, usecase.ErrSnapshotUnavailable):
		response.WriteError(w, http.StatusServiceUnavailable, response.KindUnavailable, "No snapshot available")

	case errors.Is(err, port.ErrTextExtractorUnavailable):
		response.WriteError(w, http.StatusServiceUnavailable, response.KindUnavailable, err.Error())

	case errors.Is(err, context.Canceled):
		h.logger.Debug("Request canceled by client", "path", r.URL.Path)

	default:
		h.logger.Error("Streamer API request failed", err,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		response.WriteError(w, http.StatusInternalServerError, response.KindInternal, "Internal server error")
	}
}
