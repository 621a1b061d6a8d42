package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ottera/fotad/internal/admission"
	"github.com/ottera/fotad/internal/firmware"
	"github.com/ottera/fotad/internal/logging"
)

// Router dispatches a parsed request to one of the three OTA operations
// and composes the metadata cache, admission controller, and streamer.
// It holds plain references to its collaborators; nothing is global, so
// a Router is directly constructible in tests.
type Router struct {
	cache        *firmware.MetadataCache
	admission    *admission.Controller
	firmwarePath string
	firmwareName string
}

// NewRouter creates a Router serving the artifact at firmwarePath.
// firmwareName is the filename advertised in Content-Disposition.
func NewRouter(cache *firmware.MetadataCache, ctrl *admission.Controller, firmwarePath, firmwareName string) *Router {
	return &Router{
		cache:        cache,
		admission:    ctrl,
		firmwarePath: firmwarePath,
		firmwareName: firmwareName,
	}
}

// Handle serves one request and reports the response status and body
// bytes written, for access logging. A panic in a handler is recovered
// here: the event is logged with the path and cause, a 500 is attempted,
// and the connection's worker terminates without touching its siblings.
func (rt *Router) Handle(w io.Writer, req *http.Request, remoteAddr string) (status int, written int64) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Panic while handling request",
				zap.String("remote_addr", remoteAddr),
				zap.String("path", req.URL.Path),
				zap.Any("cause", r),
			)
			status = http.StatusInternalServerError
			written, _ = writeError(w, http.StatusInternalServerError, "internal server error")
		}
	}()

	if req.Method != http.MethodGet {
		written, _ = writeError(w, http.StatusNotFound, "not found")
		return http.StatusNotFound, written
	}

	switch req.URL.Path {
	case "/version":
		return rt.handleVersion(w, remoteAddr)
	case "/update":
		return rt.handleUpdate(w, req, remoteAddr)
	case "/status":
		return rt.handleStatus(w)
	default:
		written, _ = writeError(w, http.StatusNotFound, "not found")
		return http.StatusNotFound, written
	}
}

// versionResponse is the GET /version body. Version carries the content
// digest: a device downloads when it differs from its running image's.
type versionResponse struct {
	Version   string `json:"version"`
	Size      int64  `json:"size"`
	Filename  string `json:"filename"`
	Timestamp int64  `json:"timestamp"`
}

func (rt *Router) handleVersion(w io.Writer, remoteAddr string) (int, int64) {
	meta, err := rt.cache.Get(rt.firmwarePath)
	if errors.Is(err, firmware.ErrNotFound) {
		n, _ := writeError(w, http.StatusNotFound, "firmware not available")
		return http.StatusNotFound, n
	}
	if err != nil {
		logging.Error("Failed to read firmware metadata",
			zap.String("remote_addr", remoteAddr),
			zap.String("path", rt.firmwarePath),
			zap.Error(err),
		)
		n, _ := writeError(w, http.StatusInternalServerError, "internal server error")
		return http.StatusInternalServerError, n
	}

	n, _ := writeJSON(w, http.StatusOK, versionResponse{
		Version:   meta.Digest,
		Size:      meta.Size,
		Filename:  rt.firmwareName,
		Timestamp: time.Now().Unix(),
	}, header{"Cache-Control", "no-cache"})
	return http.StatusOK, n
}

func (rt *Router) handleUpdate(w io.Writer, req *http.Request, remoteAddr string) (int, int64) {
	meta, err := rt.cache.Get(rt.firmwarePath)
	if errors.Is(err, firmware.ErrNotFound) {
		n, _ := writeError(w, http.StatusNotFound, "firmware not available")
		return http.StatusNotFound, n
	}
	if err != nil {
		logging.Error("Failed to read firmware metadata",
			zap.String("remote_addr", remoteAddr),
			zap.String("path", rt.firmwarePath),
			zap.Error(err),
		)
		n, _ := writeError(w, http.StatusInternalServerError, "internal server error")
		return http.StatusInternalServerError, n
	}

	rangeHeader := req.Header.Get("Range")
	rng, err := ParseRange(rangeHeader, meta.Size)
	if err != nil {
		logging.Debug("Rejected range request",
			zap.String("remote_addr", remoteAddr),
			zap.String("range", rangeHeader),
			zap.Error(err),
		)
		n, _ := writeError(w, http.StatusRequestedRangeNotSatisfiable, "range not satisfiable",
			header{"Content-Range", fmt.Sprintf("bytes */%d", meta.Size)})
		return http.StatusRequestedRangeNotSatisfiable, n
	}

	status := http.StatusOK
	headers := []header{
		{"Content-Type", "application/octet-stream"},
		{"Content-Length", fmt.Sprintf("%d", rng.Length())},
		{"Accept-Ranges", "bytes"},
		{"Content-Disposition", fmt.Sprintf("attachment; filename=%s", rt.firmwareName)},
	}
	if rangeHeader != "" {
		status = http.StatusPartialContent
		headers = append(headers, header{"Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, meta.Size)})
	}

	if err := writeHead(w, status, headers); err != nil {
		logging.Debug("Client gone before headers written",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return status, 0
	}

	written, err := firmware.Stream(rt.firmwarePath, rng, w)
	if err != nil {
		// Client disconnects mid-download are routine: the device
		// resumes with a Range request for the remaining bytes.
		logging.Info("Transfer stopped early",
			zap.String("remote_addr", remoteAddr),
			zap.Int64("bytes_written", written),
			zap.Int64("bytes_requested", rng.Length()),
			zap.Error(err),
		)
		return status, written
	}

	logging.Debug("Transfer complete",
		zap.String("remote_addr", remoteAddr),
		zap.Int64("start", rng.Start),
		zap.Int64("end", rng.End),
		zap.Int64("bytes_written", written),
	)
	return status, written
}

// statusResponse is the GET /status body. ActiveThreads is the wire
// name the device fleet already parses; it counts live connections.
// The digest fields are present only when the artifact exists.
type statusResponse struct {
	Status            string `json:"status"`
	ActiveThreads     int64  `json:"active_threads"`
	FirmwareAvailable bool   `json:"firmware_available"`
	Timestamp         int64  `json:"timestamp"`
	FirmwareMD5       string `json:"firmware_md5,omitempty"`
	FirmwareSize      *int64 `json:"firmware_size,omitempty"`
}

func (rt *Router) handleStatus(w io.Writer) (int, int64) {
	resp := statusResponse{
		Status:        "running",
		ActiveThreads: rt.admission.Active(),
		Timestamp:     time.Now().Unix(),
	}

	if meta, err := rt.cache.Get(rt.firmwarePath); err == nil {
		resp.FirmwareAvailable = true
		resp.FirmwareMD5 = meta.Digest
		resp.FirmwareSize = &meta.Size
	}

	n, _ := writeJSON(w, http.StatusOK, resp)
	return http.StatusOK, n
}
