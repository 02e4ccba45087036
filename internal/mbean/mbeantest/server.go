// Package mbeantest provides an in-memory Liberty REST connector for tests.
package mbeantest

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"wasdeploy/internal/mbean"

	"github.com/go-chi/chi/v5"
)

// Default credentials accepted by a new Server.
const (
	Username = "admin"
	Password = "secret"
)

// Server is a fake REST connector over TLS. Registered MBeans are kept by
// canonical name; uploaded files are kept in memory.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	mbeans   map[string]map[string]any
	files    map[string][]byte
	requests []string

	// FailQueries makes registry reads answer 500.
	FailQueries bool
	// DeleteStatus overrides the status of a successful delete.
	DeleteStatus int
	// OnUpload and OnDelete run after a file was stored or removed.
	OnUpload func(path string)
	OnDelete func(path string)
}

// NewServer starts a fake connector on a local port.
func NewServer() *Server {
	s := &Server{
		mbeans: map[string]map[string]any{},
		files:  map[string][]byte{},
	}
	s.Server = httptest.NewTLSServer(s.router())
	return s
}

// BaseURL returns the connector root.
func (s *Server) BaseURL() string {
	return s.URL + "/" + mbean.ConnectorPath
}

// Address returns the connector address in the form a JVM publishes it.
func (s *Server) Address() string {
	return mbean.SchemeJMXREST + s.Listener.Addr().String() + "/" + mbean.ConnectorPath
}

// Host returns the listening host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Listener.Addr().String())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// Register adds or replaces an MBean.
func (s *Server) Register(name mbean.ObjectName, attrs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attrs == nil {
		attrs = map[string]any{}
	}
	s.mbeans[name.Canonical()] = attrs
}

// Unregister removes an MBean.
func (s *Server) Unregister(name mbean.ObjectName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mbeans, name.Canonical())
}

// SetAttribute changes one attribute of a registered MBean.
func (s *Server) SetAttribute(name mbean.ObjectName, attribute string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attrs, ok := s.mbeans[name.Canonical()]; ok {
		attrs[attribute] = value
	}
}

// PutFile stores a file as if it had been uploaded.
func (s *Server) PutFile(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
}

// File returns an uploaded file.
func (s *Server) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	return data, ok
}

// Requests returns "METHOD path" for every request served.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			s.requests = append(s.requests, req.Method+" "+req.URL.Path)
			s.mu.Unlock()
			user, pass, ok := req.BasicAuth()
			if !ok || user != Username || pass != Password {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/"+mbean.ConnectorPath, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		r.Get("/mbeans", s.queryNames)
		r.Get("/mbeans/{name}", s.isRegistered)
		r.Get("/mbeans/{name}/attributes/{attr}", s.getAttribute)
		r.Post("/file/{path}", s.upload)
		r.Delete("/file/{path}", s.delete)
	})
	return r
}

type mbeanRef struct {
	ObjectName string `json:"objectName"`
	URL        string `json:"URL"`
}

type attributeValue struct {
	Value any    `json:"value"`
	Type  string `json:"type"`
}

func (s *Server) queryNames(w http.ResponseWriter, req *http.Request) {
	if s.failing(w) {
		return
	}
	pattern, err := mbean.ParseObjectName(req.URL.Query().Get("objectName"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	refs := []mbeanRef{}
	for name := range s.mbeans {
		if pattern.Matches(mbean.MustParseObjectName(name)) {
			refs = append(refs, mbeanRef{ObjectName: name, URL: "/" + mbean.ConnectorPath + "/mbeans/" + url.PathEscape(name)})
		}
	}
	s.mu.Unlock()
	writeJSON(w, refs)
}

func (s *Server) isRegistered(w http.ResponseWriter, req *http.Request) {
	if s.failing(w) {
		return
	}
	if _, ok := s.lookup(req); !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getAttribute(w http.ResponseWriter, req *http.Request) {
	if s.failing(w) {
		return
	}
	attrs, ok := s.lookup(req)
	if !ok {
		http.Error(w, "javax.management.InstanceNotFoundException", http.StatusNotFound)
		return
	}
	v, ok := attrs[chi.URLParam(req, "attr")]
	if !ok {
		http.Error(w, "javax.management.AttributeNotFoundException", http.StatusNotFound)
		return
	}
	writeJSON(w, attributeValue{Value: v, Type: typeName(v)})
}

func (s *Server) upload(w http.ResponseWriter, req *http.Request) {
	path := filePath(req)
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.files[path] = body
	hook := s.OnUpload
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
	if hook != nil {
		hook(path)
	}
}

func (s *Server) delete(w http.ResponseWriter, req *http.Request) {
	path := filePath(req)
	s.mu.Lock()
	_, ok := s.files[path]
	delete(s.files, path)
	hook := s.OnDelete
	status := s.DeleteStatus
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
	if hook != nil {
		hook(path)
	}
}

func (s *Server) failing(w http.ResponseWriter) bool {
	s.mu.Lock()
	fail := s.FailQueries
	s.mu.Unlock()
	if fail {
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
	}
	return fail
}

func (s *Server) lookup(req *http.Request) (map[string]any, bool) {
	raw, _ := url.PathUnescape(chi.URLParam(req, "name"))
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs, ok := s.mbeans[raw]
	return attrs, ok
}

func filePath(req *http.Request) string {
	path, _ := url.QueryUnescape(chi.URLParam(req, "path"))
	return path
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "java.lang.String"
	case float64, int:
		return "java.lang.Integer"
	case bool:
		return "java.lang.Boolean"
	}
	return "java.lang.Object"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
