package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/orderflow/application"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
)

type createRequest struct {
	OwnerID   string          `json:"owner_id"`
	Product   order.Product   `json:"product"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
}

type transitionRequest struct {
	Target         order.Status      `json:"target"`
	Note           string            `json:"note,omitempty"`
	ExpectedStatus order.Status      `json:"expected_status,omitempty"`
	Vars           map[string]string `json:"vars,omitempty"`
}

type paymentRequest struct {
	Reference string `json:"reference"`
}

type reviewRequest struct {
	Verdict order.DocumentVerification `json:"verdict"`
	Note    string                     `json:"note,omitempty"`
}

type targetsResponse struct {
	RecordID string         `json:"record_id"`
	Targets  []order.Status `json:"targets"`
}

type verifyResponse struct {
	RecordID string `json:"record_id"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) describeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.DescribeStatus(order.Status(chi.URLParam(r, "status"))))
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OwnerID == "" && actor.Role == order.RoleOwner {
		req.OwnerID = actor.ID
	}

	rec, err := s.service.Create(r.Context(), req.OwnerID, req.Product, req.AmountUSD, actor)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	rec, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	if actor.Role != order.RoleAdmin && !actor.Owns(rec) {
		writeError(w, http.StatusForbidden, order.ErrForbidden.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listTargets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	targets, err := s.service.ListAllowedTargets(r.Context(), id, mustActor(r))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	if targets == nil {
		targets = []order.Status{}
	}
	writeJSON(w, http.StatusOK, targetsResponse{RecordID: id, Targets: targets})
}

func (s *Server) requestTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !decode(w, r, &req) {
		return
	}
	res := s.service.RequestTransition(r.Context(), chi.URLParam(r, "id"), req.Target, mustActor(r), application.Extras{
		Note:           req.Note,
		ExpectedStatus: req.ExpectedStatus,
		Vars:           req.Vars,
	})
	writeResult(w, res)
}

func (s *Server) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	res := s.service.RecordPayment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "stage"), req.Reference, mustActor(r))
	writeResult(w, res)
}

func (s *Server) reviewDocuments(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decode(w, r, &req) {
		return
	}
	res := s.service.ReviewDocuments(r.Context(), chi.URLParam(r, "id"), req.Verdict, mustActor(r), req.Note)
	writeResult(w, res)
}

func (s *Server) verifyHistory(w http.ResponseWriter, r *http.Request) {
	if mustActor(r).Role != order.RoleAdmin {
		writeError(w, http.StatusForbidden, order.ErrForbidden.Error())
		return
	}
	id := chi.URLParam(r, "id")
	err := s.service.VerifyHistory(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, verifyResponse{RecordID: id, Valid: true})
	case errors.Is(err, record.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeJSON(w, http.StatusOK, verifyResponse{RecordID: id, Error: err.Error()})
	}
}

// mustActor returns the actor set by the auth middleware. Routes using it
// are only mounted behind that middleware.
func mustActor(r *http.Request) order.Actor {
	actor, _ := ActorFrom(r.Context())
	return actor
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, res application.Result) {
	if res.OK {
		writeJSON(w, http.StatusOK, res)
		return
	}
	status := statusForCode(res.Code)
	if errors.Is(res.Err, record.ErrRecordNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, res)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, record.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrUnknownProduct),
		errors.Is(err, order.ErrInvalidActor),
		errors.Is(err, record.ErrInvalidRecordID):
		return http.StatusBadRequest
	}
	if code := order.CodeOf(err); code != "" {
		return statusForCode(code)
	}
	return http.StatusBadRequest
}

func statusForCode(code order.Code) int {
	switch code {
	case order.CodeForbidden:
		return http.StatusForbidden
	case order.CodeConflict:
		return http.StatusConflict
	case order.CodeInvalidTransition, order.CodeGateDenied:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
