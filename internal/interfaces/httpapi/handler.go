package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/resilience"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

const maxRequestBodyBytes = 10 << 20

var requestJSON = jsoniter.ConfigCompatibleWithStandardLibrary

type HandlerDeps struct {
	Sports        *usecase.SportsService
	Favorites     *usecase.FavoritesService
	Notifications *usecase.NotificationService
	Jobs          *usecase.BackgroundJobsService
	Store         cache.Store
	Breakers      *resilience.Registry
	Logger        *logging.Logger

	// ExposeInternalErrors writes the raw error text on 500 responses.
	ExposeInternalErrors bool
}

type Handler struct {
	sports        *usecase.SportsService
	favorites     *usecase.FavoritesService
	notifications *usecase.NotificationService
	jobs          *usecase.BackgroundJobsService
	store         cache.Store
	breakers      *resilience.Registry
	logger        *logging.Logger
	validator     *validator.Validate

	exposeInternalErrors bool
	startedAt            time.Time
	now                  func() time.Time
}

func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		sports:               deps.Sports,
		favorites:            deps.Favorites,
		notifications:        deps.Notifications,
		jobs:                 deps.Jobs,
		store:                deps.Store,
		breakers:             deps.Breakers,
		logger:               logger,
		validator:            validator.New(),
		exposeInternalErrors: deps.ExposeInternalErrors,
		startedAt:            time.Now(),
		now:                  time.Now,
	}
}

// fail logs and writes err. Unmapped errors hide their text unless the
// handler was built to expose it.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string, args ...any) {
	mapped := mapError(ctx, err)
	if mapped.HTTPStatus >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, append(args, "error", err)...)
	} else {
		h.logger.WarnContext(ctx, msg, append(args, "error", err)...)
	}

	if mapped.HTTPStatus == http.StatusInternalServerError && !h.exposeInternalErrors {
		writeInternalError(ctx, w)
		return
	}
	writeError(ctx, w, err)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeBody reads a JSON body into dst. Unknown fields are ignored since
// browser clients post whole PushSubscription objects. An empty body
// leaves dst untouched when allowEmpty is set.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	defer body.Close()

	if err := requestJSON.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
