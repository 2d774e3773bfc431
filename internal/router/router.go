// Package router wires the HTTP surface: method/path dispatch via chi, JSON
// request decoding, and the mapping from service errors to status codes.
package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepdeck/prepdeck/internal/gzippedhttp"
	"github.com/prepdeck/prepdeck/internal/ipchecker"
	"github.com/prepdeck/prepdeck/internal/logger"
	"github.com/prepdeck/prepdeck/internal/models"
	"github.com/prepdeck/prepdeck/internal/service"
)

// Router holds the handlers' dependencies: the business-rule service and the
// trusted-subnet checker for the internal API.
type Router struct {
	svc       *service.Service
	ipChecker *ipchecker.IPChecker
}

// New assembles the chi mux with all routes and middleware.
func New(svc *service.Service, ipChecker *ipchecker.IPChecker) *chi.Mux {
	theRouter := &Router{
		svc:       svc,
		ipChecker: ipChecker,
	}

	mux := chi.NewRouter()
	mux.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	mux.Post(`/users`, theRouter.PostUsers)
	mux.Get(`/users/{user_id}`, theRouter.GetUsersUserid)
	mux.Delete(`/users`, theRouter.DeleteUsers)

	mux.Post(`/login`, theRouter.PostLogin)

	mux.Post(`/feedback`, theRouter.PostFeedback)
	mux.Get(`/feedback`, theRouter.GetFeedback)
	mux.Delete(`/feedback`, theRouter.DeleteFeedback)

	mux.Get(`/ping`, theRouter.GetPing)
	mux.Get(`/api/internal/stats`, theRouter.GetAPIInternalStats)

	// The contract predates proper REST status codes: a wrong method on a
	// known resource answers 400, not 405.
	mux.MethodNotAllowed(theRouter.UnsupportedMethod)

	return mux
}

func writeJSON(response http.ResponseWriter, statusCode int, body any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugln("Error while encoding the response body:", err)
	}
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindAuth:
		return http.StatusUnauthorized
	default:
		// Validation and conflict failures share the 400 class.
		return http.StatusBadRequest
	}
}

// writeError converts a service failure into one response. Internal failures
// get an opaque body; the detail goes to the log only.
func writeError(response http.ResponseWriter, err error) {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		writeJSON(response, statusForKind(svcErr.Kind), models.ErrorResponse{Error: svcErr.Message})
		return
	}

	logger.Log.Errorln("internal error:", err)
	writeJSON(response, http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
}

// decodeJSONBody parses the request body into dst, keeping numbers
// arbitrary-precision. An empty body decodes as an empty object.
func decodeJSONBody(request *http.Request, dst any) error {
	decoder := json.NewDecoder(request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	return nil
}

// PostUsers handles user registration.
func (theRouter *Router) PostUsers(response http.ResponseWriter, request *http.Request) {
	var req models.CreateUserRequest
	if err := decodeJSONBody(request, &req); err != nil {
		writeError(response, err)
		return
	}

	if err := theRouter.svc.CreateUser(request.Context(), req); err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.MessageResponse{Message: "User successfully created"})
}

// GetUsersUserid returns a user by the id in the path, without the password
// attribute.
func (theRouter *Router) GetUsersUserid(response http.ResponseWriter, request *http.Request) {
	record, err := theRouter.svc.GetUser(request.Context(), chi.URLParam(request, "user_id"))
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, record)
}

// DeleteUsers removes a user by the id in the request body.
func (theRouter *Router) DeleteUsers(response http.ResponseWriter, request *http.Request) {
	var req models.DeleteUserRequest
	if err := decodeJSONBody(request, &req); err != nil {
		writeError(response, err)
		return
	}

	if err := theRouter.svc.DeleteUser(request.Context(), req.ID); err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: "User deleted"})
}

// PostLogin validates a credential pair and returns the matched user's id.
func (theRouter *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	var req models.LoginRequest
	if err := decodeJSONBody(request, &req); err != nil {
		writeError(response, err)
		return
	}

	id, err := theRouter.svc.Login(request.Context(), req)
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		ID:      id,
	})
}

// PostFeedback creates an interview-feedback record.
func (theRouter *Router) PostFeedback(response http.ResponseWriter, request *http.Request) {
	var req models.CreateFeedbackRequest
	if err := decodeJSONBody(request, &req); err != nil {
		writeError(response, err)
		return
	}

	if err := theRouter.svc.CreateFeedback(request.Context(), req); err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.MessageResponse{Message: "Interview feedback created"})
}

// GetFeedback lists the feedback records of the user given in the query
// string. No feedback is an empty array with status 200.
func (theRouter *Router) GetFeedback(response http.ResponseWriter, request *http.Request) {
	records, err := theRouter.svc.GetFeedbackByUser(request.Context(), request.URL.Query().Get("user_id"))
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, records)
}

// DeleteFeedback removes a feedback record by the id in the request body.
func (theRouter *Router) DeleteFeedback(response http.ResponseWriter, request *http.Request) {
	var req models.DeleteFeedbackRequest
	if err := decodeJSONBody(request, &req); err != nil {
		writeError(response, err)
		return
	}

	if err := theRouter.svc.DeleteFeedback(request.Context(), req.ID); err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: "Interview feedback deleted"})
}

// GetPing reports storage health.
func (theRouter *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := theRouter.svc.Ping(request.Context()); err != nil {
		writeError(response, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetAPIInternalStats returns record counts. Access is limited to the trusted
// subnet; without a configured subnet the endpoint answers 403 to everyone.
func (theRouter *Router) GetAPIInternalStats(response http.ResponseWriter, request *http.Request) {
	if theRouter.ipChecker.IsTrustedSubnetEmpty() {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	clientIP, err := theRouter.ipChecker.GetClientIP(request)
	if err != nil {
		writeError(response, err)
		return
	}

	if !theRouter.ipChecker.Check(clientIP) {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	stats, err := theRouter.svc.GetInternalStats(request.Context())
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

// UnsupportedMethod answers any known resource hit with a method outside its
// contract.
func (theRouter *Router) UnsupportedMethod(response http.ResponseWriter, request *http.Request) {
	writeJSON(response, http.StatusBadRequest, models.MessageResponse{Message: "Unsupported HTTP method"})
}
