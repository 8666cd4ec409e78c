package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"ClaimReserve/internal/domain/models"
	domrepo "ClaimReserve/internal/domain/repository"
	"ClaimReserve/internal/repository"
	"ClaimReserve/internal/service/metrics"
	"ClaimReserve/internal/services/chainladder"
	"ClaimReserve/internal/usecase"
	xhttp "ClaimReserve/pkg/http"
	"ClaimReserve/pkg/http/middleware"
	xlogger "ClaimReserve/pkg/logger"
	"ClaimReserve/pkg/util"
)

const (
	serviceName    = "Claims Reserving Analysis API"
	serviceVersion = "1.0.0"
)

// ReserveEchoHandler serves the reserve analysis API.
type ReserveEchoHandler struct {
	logger    *xlogger.Logger
	analysis  *usecase.ReserveAnalysis
	reader    *repository.CSVPolicyReader
	limiter   middleware.Limiter
	endpoints *metrics.Endpoints
}

// NewReserveEchoHandler creates the handler. limiter and endpoints may be nil.
func NewReserveEchoHandler(
	logger *xlogger.Logger,
	analysis *usecase.ReserveAnalysis,
	reader *repository.CSVPolicyReader,
	limiter middleware.Limiter,
	endpoints *metrics.Endpoints,
) *ReserveEchoHandler {
	return &ReserveEchoHandler{
		logger:    logger,
		analysis:  analysis,
		reader:    reader,
		limiter:   limiter,
		endpoints: endpoints,
	}
}

func (h *ReserveEchoHandler) RegisterRoutes(e *echo.Echo) {
	var limited []echo.MiddlewareFunc
	if h.limiter != nil {
		limited = append(limited, middleware.RateLimit(h.limiter))
	}

	e.GET("/", h.Index)
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.POST("/analyze", h.AnalyzeUpload, limited...)
	g.POST("/analyze/json", h.AnalyzeJSON, limited...)
	g.GET("/portfolios/:portfolio/analysis", h.AnalyzePortfolio, limited...)
}

func (h *ReserveEchoHandler) Index(c echo.Context) error {
	endpoints := map[string]string{
		"POST /api/analyze":      "Upload CSV file and run Chain-Ladder analysis",
		"POST /api/analyze/json": "Run Chain-Ladder analysis on a JSON policy table",
		"GET /api/health":        "Health check endpoint",
	}
	if h.analysis.PortfolioEnabled() {
		endpoints["GET /api/portfolios/:portfolio/analysis"] = "Run Chain-Ladder analysis on a stored portfolio"
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"message":   serviceName,
		"version":   serviceVersion,
		"endpoints": endpoints,
	})
}

func (h *ReserveEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{
		"status":  "healthy",
		"message": "Claims Reserving API is running",
	})
}

// AnalyzeUpload runs an analysis on a multipart CSV upload. The optional
// "options" field carries {"method","tailFactor"}; unreadable options fall
// back to the defaults.
func (h *ReserveEchoHandler) AnalyzeUpload(c echo.Context) error {
	start := time.Now()
	res, err := h.analyzeUpload(c)
	h.endpoints.Observe("analyze_upload", start, err)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReserveEchoHandler) analyzeUpload(c echo.Context) (*models.ReserveResult, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			return nil, err
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, xhttp.NewAppError("ERR_REQUIRED", "file", "No file uploaded", http.StatusBadRequest)
		default:
			return nil, xhttp.BadRequestErrorf("could not read upload: %v", err)
		}
	}
	if fh.Filename == "" {
		return nil, xhttp.NewAppError("ERR_REQUIRED", "file", "No file selected", http.StatusBadRequest)
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return nil, xhttp.NewAppError("ERR_FILE_TYPE", "file", "Invalid file type. Please upload a CSV file.", http.StatusBadRequest)
	}

	opts := h.uploadOptions(c.FormValue("options"))

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	policies, err := h.reader.Read(f)
	if err != nil {
		return nil, err
	}
	return h.analysis.Analyze(c.Request().Context(), usecase.AnalysisInput{
		Source:    usecase.SourceUpload,
		RequestID: requestID(c),
		Policies:  policies,
		Options:   opts,
	})
}

func (h *ReserveEchoHandler) uploadOptions(raw string) models.AnalysisOptions {
	var req models.OptionsRequest
	if strings.TrimSpace(raw) == "" {
		return req.ToOptions()
	}
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		h.logger.Warn("ignoring unreadable analysis options", xlogger.Error(err))
		return models.OptionsRequest{}.ToOptions()
	}
	return req.ToOptions()
}

func (h *ReserveEchoHandler) AnalyzeJSON(c echo.Context) error {
	start := time.Now()
	res, err := h.analyzeJSON(c)
	h.endpoints.Observe("analyze_json", start, err)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReserveEchoHandler) analyzeJSON(c echo.Context) (*models.ReserveResult, error) {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nil, requestError(verr)
	}
	return h.analysis.Analyze(c.Request().Context(), usecase.AnalysisInput{
		Source:    usecase.SourceJSON,
		RequestID: requestID(c),
		Policies:  models.PoliciesFromRecords(req.Policies),
		Options:   req.Options.ToOptions(),
	})
}

func (h *ReserveEchoHandler) AnalyzePortfolio(c echo.Context) error {
	start := time.Now()
	res, err := h.analyzePortfolio(c)
	h.endpoints.Observe("analyze_portfolio", start, err)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReserveEchoHandler) analyzePortfolio(c echo.Context) (*models.ReserveResult, error) {
	req := &models.PortfolioAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nil, requestError(verr)
	}
	tail, err := util.ParseFloatDefault(req.TailFactor, models.DefaultTailFactor)
	if err != nil {
		return nil, xhttp.NewAppError("ERR_NUMERIC", "tail_factor", err.Error(), http.StatusBadRequest)
	}
	opts := models.AnalysisOptions{Method: models.ParseMethod(req.Method), TailFactor: tail}
	return h.analysis.AnalyzePortfolio(c.Request().Context(), req.Portfolio, requestID(c), opts)
}

// requestError carries binding and validation failures of a request DTO.
type requestError []xhttp.ValidationError

func (e requestError) Error() string {
	if len(e) == 0 {
		return "invalid request"
	}
	return e[0].Message
}

// errorResponse maps analysis failures onto the response envelope.
func (h *ReserveEchoHandler) errorResponse(c echo.Context, err error) error {
	var (
		reqErr requestError
		appErr *xhttp.AppError
		verr   *chainladder.ValidationError
		terr   *repository.TableError
		he     *echo.HTTPError
	)
	switch {
	case errors.As(err, &reqErr):
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError(reqErr))
	case errors.As(err, &appErr):
		return xhttp.AppErrorResponse(c, appErr)
	case errors.As(err, &verr):
		return xhttp.BadRequestResponse(c, violations(verr))
	case errors.As(err, &terr):
		tableErr := xhttp.MalformedTableError(terr.Error())
		if terr.Line > 0 {
			tableErr.WithParam("line", terr.Line)
		}
		if terr.Column != "" {
			tableErr.WithParam("column", terr.Column)
		}
		return xhttp.AppErrorResponse(c, tableErr)
	case errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge:
		return xhttp.AppErrorResponse(c, xhttp.PayloadTooLargeError(fmt.Sprintf("%v", he.Message)))
	case errors.As(err, &he):
		return err
	case errors.Is(err, domrepo.ErrPortfolioNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("portfolio %q not found", c.Param("portfolio")))
	case errors.Is(err, usecase.ErrPortfolioSourceDisabled):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("portfolio analysis is not enabled"))
	default:
		h.logger.Error("reserve analysis failed", xlogger.String("path", c.Path()), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError(fmt.Sprintf("Analysis failed: %v", err)))
	}
}

func violations(verr *chainladder.ValidationError) []xhttp.ValidationError {
	out := make([]xhttp.ValidationError, 0, len(verr.Violations)+1)
	for _, v := range verr.Violations {
		ve := xhttp.ValidationError{
			Code:    "ERR_" + strings.ToUpper(v.Rule),
			Field:   v.Field,
			Message: v.Message,
		}
		if v.Row >= 0 {
			row := v.Row
			ve.Row = &row
		}
		out = append(out, ve)
	}
	if verr.Truncated {
		out = append(out, xhttp.ValidationError{Code: "ERR_TRUNCATED", Message: "further violations omitted"})
	}
	return out
}

func requestID(c echo.Context) string {
	if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

var _ xhttp.Handler = (*ReserveEchoHandler)(nil)
