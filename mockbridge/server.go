package mockbridge

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/hue-gateway/hue"
	"github.com/upb/hue-gateway/middleware"
	"github.com/upb/hue-gateway/utils"
	"go.uber.org/zap"
)

// Server exposes a Store over the bridge REST API. Any username is accepted.
type Server struct {
	store  *Store
	logger *zap.Logger
}

// NewServer creates a new Server
func NewServer(store *Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: store, logger: logger}
}

// Routes returns the bridge router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)

	r.Route("/api/mock", func(r chi.Router) {
		r.Get("/lights", s.handleMockLights)
		r.Get("/groups_lights", s.handleMockGroupLights)
	})

	r.Route("/api/{username}", func(r chi.Router) {
		r.Get("/lights", s.handleLights)
		r.Get("/lights/{id}", s.handleLight)
		r.Put("/lights/{id}/state", s.handleSetLightState)
		r.Get("/groups", s.handleGroups)
		r.Get("/groups/{id}", s.handleGroup)
		r.Put("/groups/{id}/action", s.handleSetGroupAction)
	})

	return r
}

func (s *Server) handleLights(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, s.store.Lights())
}

// handleLight answers an unknown id with an empty object, like the real bridge
// does for lights that were removed.
func (s *Server) handleLight(w http.ResponseWriter, r *http.Request) {
	l, ok := s.store.Light(chi.URLParam(r, "id"))
	if !ok {
		s.write(w, http.StatusOK, struct{}{})
		return
	}
	s.write(w, http.StatusOK, l)
}

func (s *Server) handleSetLightState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := s.decodeState(w, r)
	if !ok {
		return
	}
	if !s.store.SetLightState(id, state) {
		s.write(w, http.StatusNotFound, []hue.Result{{Error: &hue.APIError{Description: "Light not found"}}})
		return
	}
	s.logger.Debug("light state updated", zap.String("light_id", id))
	s.write(w, http.StatusOK, successResults(fmt.Sprintf("/lights/%s/state", id), state))
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, s.store.Groups())
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	g, ok := s.store.Group(chi.URLParam(r, "id"))
	if !ok {
		s.write(w, http.StatusOK, struct{}{})
		return
	}
	s.write(w, http.StatusOK, g)
}

func (s *Server) handleSetGroupAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action, ok := s.decodeState(w, r)
	if !ok {
		return
	}
	if !s.store.SetGroupAction(id, action) {
		s.write(w, http.StatusNotFound, []hue.Result{{Error: &hue.APIError{Description: "Group not found"}}})
		return
	}
	s.logger.Debug("group action applied", zap.String("group_id", id))
	s.write(w, http.StatusOK, successResults(fmt.Sprintf("/groups/%s/action", id), action))
}

func (s *Server) handleMockLights(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, s.store.Lights())
}

func (s *Server) handleMockGroupLights(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, map[string]interface{}{
		"groups": s.store.Groups(),
		"lights": s.store.GroupLights(),
	})
}

// decodeState reads a state body and range checks it. On failure it writes
// the bridge style error list and returns false.
func (s *Server) decodeState(w http.ResponseWriter, r *http.Request) (hue.LightState, bool) {
	var state hue.LightState
	if err := utils.DecodeJSON(r, &state); err != nil {
		s.write(w, http.StatusBadRequest, []hue.Result{{Error: &hue.APIError{
			Type:        ErrorTypeInvalidJSON,
			Address:     r.URL.Path,
			Description: "body contains invalid json",
		}}})
		return state, false
	}
	if apiErr := checkRange(r.URL.Path, state); apiErr != nil {
		s.write(w, http.StatusOK, []hue.Result{{Error: apiErr}})
		return state, false
	}
	return state, true
}

// ErrorTypeInvalidJSON is the bridge error type for an unparsable body
const ErrorTypeInvalidJSON = 2

func checkRange(address string, st hue.LightState) *hue.APIError {
	check := func(name string, v *int, max int) *hue.APIError {
		if v == nil || (*v >= 0 && *v <= max) {
			return nil
		}
		return &hue.APIError{
			Type:        hue.ErrorTypeInvalidParameter,
			Address:     address + "/" + name,
			Description: fmt.Sprintf("invalid value, %d, for parameter, %s", *v, name),
		}
	}
	if e := check("bri", st.Bri, 254); e != nil {
		return e
	}
	if e := check("hue", st.Hue, 65535); e != nil {
		return e
	}
	return check("sat", st.Sat, 254)
}

func successResults(prefix string, st hue.LightState) []map[string]map[string]interface{} {
	results := make([]map[string]map[string]interface{}, 0, 4)
	add := func(name string, v interface{}) {
		results = append(results, map[string]map[string]interface{}{
			"success": {prefix + "/" + name: v},
		})
	}
	if st.On != nil {
		add("on", *st.On)
	}
	if st.Bri != nil {
		add("bri", *st.Bri)
	}
	if st.Hue != nil {
		add("hue", *st.Hue)
	}
	if st.Sat != nil {
		add("sat", *st.Sat)
	}
	return results
}

func (s *Server) write(w http.ResponseWriter, status int, v interface{}) {
	if err := utils.WriteJSON(w, status, v); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}
