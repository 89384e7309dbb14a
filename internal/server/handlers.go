package server

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"starling/internal/engine"
	"starling/internal/logging"
	"starling/internal/model"
	"starling/internal/util"
)

const (
	msgNoUser      = "User does not exist"
	msgNoUserOrBio = "User does not exist/Has no bio"
	msgNoArticles  = "This user has no bio description/no article recommendation"
	msgInternal    = "internal error"

	maxBody    = 1 << 16
	snippetLen = 280
)

// nameRequest is the JSON body of every *_api endpoint.
type nameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	K    int    `json:"k,omitempty" validate:"omitempty,min=1,max=100"`
}

type usersResponse struct {
	RecommendedUsers []string `json:"recommended_users"`
}

type postsResponse struct {
	RecommendedPosts []string `json:"recommended_posts"`
}

// formName reads the submitted name. The forms post a "name" field; any
// other single non-empty field is accepted too.
func formName(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}
	if v := strings.TrimSpace(r.PostForm.Get("name")); v != "" {
		return v
	}
	keys := make([]string, 0, len(r.PostForm))
	for k := range r.PostForm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := strings.TrimSpace(r.PostForm.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) decodeName(w http.ResponseWriter, r *http.Request) (nameRequest, bool) {
	var req nameRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	req.Name = util.NormalizeWhitespace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		msg := "invalid request"
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = "invalid " + strings.ToLower(verrs[0].Field())
		}
		respondError(w, http.StatusBadRequest, msg)
		return req, false
	}
	return req, true
}

// apiStatus maps an engine error to a status and message.
func apiStatus(err error, notFoundMsg string) (int, string) {
	switch {
	case errors.Is(err, engine.ErrNameNotFound):
		return http.StatusNotFound, msgNoUser
	case errors.Is(err, engine.ErrNoText):
		return http.StatusNotFound, notFoundMsg
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func (s *Server) logFailure(r *http.Request, kind string, err error) {
	fields := map[string]any{"request_id": RequestID(r.Context()), "kind": kind, "reason": engine.Reason(err), "error": err.Error()}
	if engine.Reason(err) == "internal" {
		logging.Error("recommend_failed", fields)
		return
	}
	logging.Debug("recommend_miss", fields)
}

func postTexts(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = util.Snippet(p.Content, snippetLen)
	}
	return out
}

func (s *Server) popularForm(w http.ResponseWriter, r *http.Request) {
	users, err := s.eng.PopularUsers(formName(r))
	if err != nil {
		s.logFailure(r, engine.KindPopular, err)
		s.pages.render(w, http.StatusOK, "recommend.html", []string{msgNoUser})
		return
	}
	s.pages.render(w, http.StatusOK, "recommend.html", users)
}

func (s *Server) similarForm(w http.ResponseWriter, r *http.Request) {
	users, err := s.eng.SimilarUsers(formName(r), 0)
	if err != nil {
		s.logFailure(r, engine.KindSimilarUsers, err)
		s.pages.render(w, http.StatusOK, "similar_recommend.html", []string{msgNoUserOrBio})
		return
	}
	s.pages.render(w, http.StatusOK, "similar_recommend.html", users)
}

func (s *Server) articleForm(w http.ResponseWriter, r *http.Request) {
	posts, err := s.eng.SimilarArticles(formName(r), 0)
	if err != nil {
		s.logFailure(r, engine.KindArticles, err)
		msg := msgNoUser
		if errors.Is(err, engine.ErrNoText) {
			msg = msgNoArticles
		}
		s.pages.render(w, http.StatusOK, "article_recommend.html", []string{msg})
		return
	}
	s.pages.render(w, http.StatusOK, "article_recommend.html", postTexts(posts))
}

func (s *Server) popularAPI(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeName(w, r)
	if !ok {
		return
	}
	users, err := s.eng.PopularUsers(req.Name)
	if err != nil {
		s.logFailure(r, engine.KindPopular, err)
		status, msg := apiStatus(err, msgNoUser)
		respondError(w, status, msg)
		return
	}
	if req.K > 0 && len(users) > req.K {
		users = users[:req.K]
	}
	respondJSON(w, http.StatusOK, usersResponse{RecommendedUsers: users})
}

func (s *Server) similarAPI(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeName(w, r)
	if !ok {
		return
	}
	users, err := s.eng.SimilarUsers(req.Name, req.K)
	if err != nil {
		s.logFailure(r, engine.KindSimilarUsers, err)
		status, msg := apiStatus(err, msgNoUserOrBio)
		respondError(w, status, msg)
		return
	}
	respondJSON(w, http.StatusOK, usersResponse{RecommendedUsers: users})
}

func (s *Server) articleAPI(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeName(w, r)
	if !ok {
		return
	}
	posts, err := s.eng.SimilarArticles(req.Name, req.K)
	if err != nil {
		s.logFailure(r, engine.KindArticles, err)
		status, msg := apiStatus(err, msgNoArticles)
		respondError(w, status, msg)
		return
	}
	respondJSON(w, http.StatusOK, postsResponse{RecommendedPosts: postTexts(posts)})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"popular":   s.eng.Ranking(),
		"default_k": s.eng.DefaultK(),
		"built_at":  s.eng.BuiltAt(),
	})
}
