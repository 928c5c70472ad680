package rest

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/tender"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
	"github.com/opentender/sealed-tender-backend/internal/service/tendering"
)

// Handler exposes the tendering service over HTTP.
type Handler struct {
	*BaseHandler
	service tendering.Service
	clock   tender.Clock
}

// NewHandler creates the API handler for the tendering service.
func NewHandler(service tendering.Service, clock tender.Clock) *Handler {
	if clock == nil {
		clock = tender.RealClock{}
	}
	return &Handler{
		BaseHandler: NewBaseHandler("v1"),
		service:     service,
		clock:       clock,
	}
}

// CreateTender handles POST /api/v1/tenders. The authenticated caller
// becomes the tender creator.
func (h *Handler) CreateTender(w http.ResponseWriter, r *http.Request) {
	var req CreateTenderRequest
	if err := h.DecodeAndValidate(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}

	minBid, err := values.NewAmount(req.MinBid)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	t, err := h.service.CreateTender(r.Context(), &tendering.CreateTenderRequest{
		Creator:         CallerFromContext(r.Context()),
		Title:           req.Title,
		Description:     req.Description,
		DocRef:          req.DocRef,
		MinBid:          minBid,
		BiddingDeadline: req.BiddingDeadline,
		RevealDeadline:  req.RevealDeadline,
	})
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusCreated, toTenderResponse(t, h.clock.Now()))
}

// ListTenders handles GET /api/v1/tenders.
func (h *Handler) ListTenders(w http.ResponseWriter, r *http.Request) {
	tenders, err := h.service.ListTenders(r.Context())
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	now := h.clock.Now()
	out := make([]*TenderResponse, 0, len(tenders))
	for _, t := range tenders {
		out = append(out, toTenderResponse(t, now))
	}
	h.WriteSuccess(w, r, http.StatusOK, out)
}

// GetTender handles GET /api/v1/tenders/{tenderID}.
func (h *Handler) GetTender(w http.ResponseWriter, r *http.Request) {
	tenderID, err := h.PathUUID(r, "tenderID")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	t, err := h.service.GetTender(r.Context(), tenderID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteSuccess(w, r, http.StatusOK, toTenderResponse(t, h.clock.Now()))
}

// CommitBid handles POST /api/v1/tenders/{tenderID}/bids. The
// authenticated caller is the bidder.
func (h *Handler) CommitBid(w http.ResponseWriter, r *http.Request) {
	tenderID, err := h.PathUUID(r, "tenderID")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	var req CommitBidRequest
	if err := h.DecodeAndValidate(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}

	bidder := CallerFromContext(r.Context())
	if err := h.service.CommitBid(r.Context(), tenderID, bidder, req.Ciphertext); err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusCreated, map[string]string{
		"tender_id": tenderID.String(),
		"bidder":    bidder,
		"status":    "committed",
	})
}

// RevealBid handles POST /api/v1/tenders/{tenderID}/reveals.
func (h *Handler) RevealBid(w http.ResponseWriter, r *http.Request) {
	tenderID, err := h.PathUUID(r, "tenderID")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	var req RevealBidRequest
	if err := h.DecodeAndValidate(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}

	amount, err := values.NewAmount(req.Amount)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	bidder := CallerFromContext(r.Context())
	if err := h.service.RevealBid(r.Context(), tenderID, bidder, amount, req.Key); err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"tender_id": tenderID.String(),
		"bidder":    bidder,
		"status":    "revealed",
	})
}

// CloseTender handles POST /api/v1/tenders/{tenderID}/close.
func (h *Handler) CloseTender(w http.ResponseWriter, r *http.Request) {
	tenderID, err := h.PathUUID(r, "tenderID")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	winner, err := h.service.CloseTender(r.Context(), tenderID, CallerFromContext(r.Context()))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	resp := map[string]interface{}{
		"tender_id": tenderID.String(),
		"status":    "closed",
	}
	if winner != nil {
		resp["winner"] = toWinnerResponse(winner)
	}
	h.WriteSuccess(w, r, http.StatusOK, resp)
}

// GetBidders handles GET /api/v1/tenders/{tenderID}/bidders.
func (h *Handler) GetBidders(w http.ResponseWriter, r *http.Request) {
	tenderID, err := h.PathUUID(r, "tenderID")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	bidders, err := h.service.GetBidders(r.Context(), tenderID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteSuccess(w, r, http.StatusOK, map[string]interface{}{
		"tender_id": tenderID.String(),
		"bidders":   bidders,
	})
}

// GetCommitment handles GET /api/v1/tenders/{tenderID}/bids/{bidder}.
func (h *Handler) GetCommitment(w http.ResponseWriter, r *http.Request) {
	tenderID, err := h.PathUUID(r, "tenderID")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	bidder := r.PathValue("bidder")

	c, revealed, err := h.service.GetCommitment(r.Context(), tenderID, bidder)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, &CommitmentResponse{
		Bidder:      c.Bidder,
		Ciphertext:  c.Ciphertext,
		SubmittedAt: c.SubmittedAt,
		Revealed:    revealed,
	})
}

// GetWinner handles GET /api/v1/tenders/{tenderID}/winner.
func (h *Handler) GetWinner(w http.ResponseWriter, r *http.Request) {
	tenderID, err := h.PathUUID(r, "tenderID")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	winner, err := h.service.GetWinner(r.Context(), tenderID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteSuccess(w, r, http.StatusOK, toWinnerResponse(winner))
}

// SealBid handles POST /api/v1/seal. Helper for bidders preparing a
// commitment; the generated key is returned once and never stored.
func (h *Handler) SealBid(w http.ResponseWriter, r *http.Request) {
	var req SealBidRequest
	if err := h.DecodeAndValidate(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}

	tenderID, err := parseUUIDField(req.TenderID, "tender_id")
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	amount, err := values.NewAmount(req.Amount)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	sealed, err := h.service.SealBid(r.Context(), tenderID, req.Bidder, amount)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteSuccess(w, r, http.StatusOK, &SealedBidResponse{
		Ciphertext: sealed.Ciphertext,
		Key:        sealed.Key,
		Packet:     sealed.Packet,
		Filename:   sealed.Filename,
	})
}

// UnsealBid handles POST /api/v1/unseal.
func (h *Handler) UnsealBid(w http.ResponseWriter, r *http.Request) {
	var req UnsealBidRequest
	if err := h.DecodeAndValidate(r, &req); err != nil {
		h.WriteError(w, r, err)
		return
	}

	amount, err := h.service.UnsealBid(r.Context(), req.Ciphertext, req.Key)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.WriteSuccess(w, r, http.StatusOK, &UnsealedBidResponse{Amount: amount.Units()})
}

func parseUUIDField(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.NewValidationError("INVALID_ID",
			field+" must be a valid UUID")
	}
	return id, nil
}
