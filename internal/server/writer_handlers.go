package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"moonjin/internal/auth"
	"moonjin/internal/pagination"
	"moonjin/internal/series"
	"moonjin/internal/subscribe"
)

func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req series.UpsertSeries
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.Series.CreateSeries(r.Context(), claims.UserID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (s *Server) handleMySeries(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	list, err := s.Series.ListByWriterID(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *Server) handleUpdateSeries(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req series.UpsertSeries
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.Series.UpdateSeries(r.Context(), id, claims.UserID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, updated)
}

func moonjinID(r *http.Request) string {
	return mux.Vars(r)["moonjinId"]
}

func (s *Server) handleWriterProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.Writers.GetPublicProfile(r.Context(), moonjinID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, profile)
}

func (s *Server) handleExternalSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribe.ExternalSubscriber
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Subscriptions.AddExternalSubscriber(r.Context(), moonjinID(r), req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, message("subscribed"))
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if err := s.Subscriptions.Follow(r.Context(), claims.UserID, moonjinID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, message("followed"))
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if err := s.Subscriptions.Unfollow(r.Context(), claims.UserID, moonjinID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, message("unfollowed"))
}

// handleWriterNewsletters lists every newsletter only for newsletterType=all;
// any other value, or none, leaves out series posts.
func (s *Server) handleWriterNewsletters(w http.ResponseWriter, r *http.Request) {
	normalOnly := r.URL.Query().Get("newsletterType") != "all"
	opts, err := pageOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.Newsletters.ListSentByMoonjinID(r.Context(), moonjinID(r), normalOnly, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var last uint
	if len(list) > 0 {
		last = list[len(list)-1].Newsletter.ID
	}
	writePage(w, list, pagination.NewPage(opts, len(list), last))
}

func (s *Server) handleWriterSeries(w http.ResponseWriter, r *http.Request) {
	opts, err := pageOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.Series.ListByMoonjinID(r.Context(), moonjinID(r), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var last uint
	if len(list) > 0 {
		last = list[len(list)-1].ID
	}
	writePage(w, list, pagination.NewPage(opts, len(list), last))
}

func (s *Server) handleWriterSeriesDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "seriesId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := s.Series.GetByMoonjinIDAndSeriesID(r.Context(), moonjinID(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

func (s *Server) handleSeriesNewsletters(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "seriesId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.Newsletters.ListInSeries(r.Context(), moonjinID(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}
