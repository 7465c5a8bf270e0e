package server

import (
	"net/http"

	"moonjin/internal/auth"
	"moonjin/internal/newsletter"
	"moonjin/internal/pagination"
	"moonjin/internal/post"
)

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req post.UpsertPost
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.Posts.CreatePost(r.Context(), claims.UserID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (s *Server) handleWritingPosts(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	list, err := s.Posts.ListWritingPosts(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *Server) handleUpdatePostContent(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req post.UpdateContent
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.Posts.UpdatePostContent(r.Context(), claims.UserID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, saved)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req post.UpsertPost
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.Posts.UpdatePost(r.Context(), id, claims.UserID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Posts.DeletePost(r.Context(), id, claims.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, message("post deleted"))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.Posts.GetPostWithContentAndSeries(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) handleGetPostMetadata(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.Posts.GetPostWithSeries(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) handleSendNewsletter(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req newsletter.SendRequest
	if err := s.decodeJSON(r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.Newsletters.Send(r.Context(), id, claims.UserID, req.NewsletterTitle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"receiverCount": n})
}

func (s *Server) handleSentNewsletters(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	opts, err := pageOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.Newsletters.ListSentByWriterID(r.Context(), claims.UserID, opts)
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

func (s *Server) handleNewsletterSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.Newsletters.GetSummary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}
