package codes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"vetlink/entity"
	"vetlink/impl/codes"
	"vetlink/lib/api/cont"
	"vetlink/lib/api/response"
	"vetlink/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	GenerateCode(ctx context.Context, user *entity.User, req *entity.CodeRequest) (*entity.GeneratedCode, error)
	ClaimCode(ctx context.Context, user *entity.User, code string) (*entity.ClaimResult, error)
}

func Generate(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.codes"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user := cont.GetUser(r.Context())
		if user == nil {
			log.Error("user not found")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("User not found"))
			return
		}

		if handler == nil {
			log.Error("code service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Code service not available"))
			return
		}

		var req entity.CodeRequest
		if err := render.Bind(r, &req); err != nil {
			log.Warn("invalid request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Fail(codes.KindInvalidInput.String(), fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		generated, err := handler.GenerateCode(r.Context(), user, &req)
		if err != nil {
			fail(log, w, r, "generate code", err)
			return
		}
		log.With(
			sl.Code(generated.Code),
			slog.String("target_id", generated.TargetId),
		).Debug("code generated")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(generated))
	}
}

func Claim(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		log := logger.With(
			sl.Module("http.handlers.codes"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Code(code),
		)

		user := cont.GetUser(r.Context())
		if user == nil {
			log.Error("user not found")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("User not found"))
			return
		}

		if handler == nil {
			log.Error("code service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Code service not available"))
			return
		}

		result, err := handler.ClaimCode(r.Context(), user, code)
		if err != nil {
			fail(log, w, r, "claim code", err)
			return
		}
		log.With(slog.String("target_id", result.TargetId)).Debug("code claimed")

		render.JSON(w, r, response.Ok(result))
	}
}

// fail writes the error response; expected outcomes like a lost race are not
// logged as errors.
func fail(log *slog.Logger, w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := codes.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError || kind.IsIntegrity() {
		log.Error(op, sl.Err(err))
	} else {
		log.With(slog.String("reason", kind.String())).Debug(op)
	}
	render.Status(r, status)
	render.JSON(w, r, response.Fail(kind.String(), kind.Message()))
}

func StatusFor(kind codes.Kind) int {
	switch kind {
	case codes.KindInvalidInput:
		return http.StatusBadRequest
	case codes.KindNotFound:
		return http.StatusNotFound
	case codes.KindAlreadyUsed:
		return http.StatusConflict
	case codes.KindExpired:
		return http.StatusGone
	case codes.KindMissingCreatedAt, codes.KindMissingTtl, codes.KindInvalidTarget, codes.KindInvalidStatus:
		return http.StatusUnprocessableEntity
	case codes.KindGenerationExhausted, codes.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
