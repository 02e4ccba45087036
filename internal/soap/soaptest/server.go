// Package soaptest provides an in-memory WebSphere SOAP connector for tests.
package soaptest

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"wasdeploy/internal/mbean"
	"wasdeploy/internal/notification"
	"wasdeploy/internal/soap"

	"github.com/go-chi/chi/v5"
)

// DefaultServerMBean is the server MBean of a single application server.
const DefaultServerMBean = "WebSphere:name=server1,process=server1,platform=proxy,node=node01,j2eeType=J2EEServer,version=9.0.5.0,type=Server,mbeanIdentifier=cells/cell01/nodes/node01/servers/server1/server.xml#Server_1,cell=cell01,spec=1.0,processType=UnManagedProcess"

// AppManagementMBean is the application management MBean.
const AppManagementMBean = "WebSphere:name=AppManagement,process=server1,platform=dynamicproxy,node=node01,version=9.0.5.0,type=AppManagement,mbeanIdentifier=AppManagement,cell=cell01,spec=1.0"

// Invocation records one invoke call.
type Invocation struct {
	ObjectName string
	Method     string
	Params     []soap.Value
}

// Server is a fake SOAP connector. Application management operations
// behave like a single server: install and uninstall complete through
// notifications, startApplication registers the Application MBean.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	ServerMBean string
	// Distribution is the composite status reported by getDistributionStatus.
	Distribution string
	// StartTargets is returned by startApplication; empty returns null.
	StartTargets string
	// InstallFails makes installApplication report a failed task.
	InstallFails bool
	// Silent suppresses terminal notifications.
	Silent bool
	// Faults makes an operation or invoke method answer with a fault.
	Faults map[string]string

	Username string
	Password string

	mbeans      map[string]map[string]soap.Value
	config      map[string][]string
	configAttrs map[string]map[string]soap.Value
	files       map[string][]byte
	subs        map[string][]soap.Notification
	seq         int64
	invocations []Invocation
}

// NewServer starts a fake connector on a local port.
func NewServer() *Server {
	s := &Server{
		ServerMBean:  DefaultServerMBean,
		Distribution: "WebSphere:cell=cell01,node=node01,distribution=true",
		StartTargets: "WebSphere:cell=cell01,node=node01,server=server1",
		Faults:       map[string]string{},
		mbeans:       map[string]map[string]soap.Value{},
		config:       map[string][]string{},
		configAttrs:  map[string]map[string]soap.Value{},
		files:        map[string][]byte{},
		subs:         map[string][]soap.Notification{},
	}
	s.Register(AppManagementMBean, nil)

	r := chi.NewRouter()
	r.Post("/", s.handle)
	s.Server = httptest.NewServer(r)
	return s
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

// Register adds an MBean with attributes.
func (s *Server) Register(name string, attrs map[string]soap.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attrs == nil {
		attrs = map[string]soap.Value{}
	}
	s.mbeans[mbean.MustParseObjectName(name).Canonical()] = attrs
}

// Unregister removes every MBean matching pattern.
func (s *Server) Unregister(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := mbean.MustParseObjectName(pattern)
	for name := range s.mbeans {
		if p.Matches(mbean.MustParseObjectName(name)) {
			delete(s.mbeans, name)
		}
	}
}

// AddConfigObject adds a configuration object of typ under scope.
func (s *Server) AddConfigObject(scope, typ, id string, attrs map[string]soap.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scope + "|" + typ
	s.config[key] = append(s.config[key], id)
	s.configAttrs[id] = attrs
}

// Emit queues n for every subscription.
func (s *Server) Emit(n soap.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(n)
}

func (s *Server) emitLocked(n soap.Notification) {
	s.seq++
	n.Sequence = s.seq
	if n.Type == "" {
		n.Type = soap.AppManagementNotificationType
	}
	for id := range s.subs {
		s.subs[id] = append(s.subs[id], n)
	}
}

// Invocations returns the invoke calls received so far.
func (s *Server) Invocations() []Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Invocation(nil), s.invocations...)
}

// Subscriptions returns the number of active notification listeners.
func (s *Server) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// File returns an uploaded file.
func (s *Server) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	return data, ok
}

type requestEnvelope struct {
	Session string       `xml:"Header>session"`
	Request soap.Request `xml:"Body>request"`
}

type faultBody struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type responseEnvelope struct {
	XMLName  xml.Name       `xml:"soapenv:Envelope"`
	NS       string         `xml:"xmlns:soapenv,attr"`
	Response *soap.Response `xml:"soapenv:Body>response,omitempty"`
	Fault    *faultBody     `xml:"soapenv:Body>soapenv:Fault,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if s.Username != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}
	body, _ := io.ReadAll(r.Body)
	var env requestEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		s.write(w, nil, fmt.Errorf("malformed request: %w", err))
		return
	}
	resp, err := s.dispatch(env.Request)
	s.write(w, resp, err)
}

func (s *Server) write(w http.ResponseWriter, resp *soap.Response, err error) {
	out := responseEnvelope{NS: soap.EnvelopeNamespace}
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
		out.Fault = &faultBody{Code: "soapenv:Server", String: err.Error()}
	} else {
		out.Response = resp
	}
	data, _ := xml.Marshal(out)
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func value(v soap.Value) (*soap.Response, error) {
	return &soap.Response{Value: v}, nil
}

func (s *Server) dispatch(req soap.Request) (*soap.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg, ok := s.Faults[req.Operation]; ok {
		return nil, fmt.Errorf("%s", msg)
	}

	switch req.Operation {
	case "getServerMBean":
		return value(soap.String(s.ServerMBean))

	case "isRegistered":
		_, ok := s.mbeans[canonical(req.ObjectName)]
		return value(soap.Bool(ok))

	case "getAttribute":
		attrs, ok := s.mbeans[canonical(req.ObjectName)]
		if !ok {
			return nil, fmt.Errorf("javax.management.InstanceNotFoundException: %s", req.ObjectName)
		}
		v, ok := attrs[req.Attribute]
		if !ok {
			return nil, fmt.Errorf("javax.management.AttributeNotFoundException: %s", req.Attribute)
		}
		return value(v)

	case "queryNames":
		pattern, err := mbean.ParseObjectName(req.ObjectName)
		if err != nil {
			return nil, err
		}
		var items []soap.Value
		for name := range s.mbeans {
			on := mbean.MustParseObjectName(name)
			if pattern.Matches(on) {
				items = append(items, soap.String(on.String()))
			}
		}
		return value(soap.List(items...))

	case "queryConfigObjects":
		key := param(req, 0) + "|" + param(req, 1)
		var items []soap.Value
		for _, id := range s.config[key] {
			items = append(items, soap.String(id))
		}
		return value(soap.List(items...))

	case "getConfigAttribute":
		v, ok := s.configAttrs[param(req, 0)][req.Attribute]
		if !ok {
			return value(soap.Null())
		}
		return value(v)

	case "uploadFile":
		data, err := base64.StdEncoding.DecodeString(param(req, 1))
		if err != nil {
			return nil, err
		}
		path := "/opt/IBM/WebSphere/AppServer/profiles/AppSrv01/temp/upload/" + param(req, 0)
		s.files[path] = data
		return value(soap.String(path))

	case "addNotificationListener":
		id := fmt.Sprintf("sub-%d", len(s.subs)+1)
		for {
			if _, taken := s.subs[id]; !taken {
				break
			}
			id += "x"
		}
		s.subs[id] = nil
		return value(soap.String(id))

	case "removeNotificationListener":
		delete(s.subs, param(req, 0))
		return value(soap.Null())

	case "pullNotifications":
		id := param(req, 0)
		queued, ok := s.subs[id]
		if !ok {
			return nil, fmt.Errorf("unknown subscription %s", id)
		}
		s.subs[id] = nil
		return &soap.Response{Value: soap.Null(), Notifications: queued}, nil

	case "invoke":
		if msg, ok := s.Faults[req.Method]; ok {
			return nil, fmt.Errorf("%s", msg)
		}
		s.invocations = append(s.invocations, Invocation{ObjectName: req.ObjectName, Method: req.Method, Params: req.Params})
		return s.invoke(req)
	}
	return nil, fmt.Errorf("unsupported operation %s", req.Operation)
}

func canonical(name string) string {
	on, err := mbean.ParseObjectName(name)
	if err != nil {
		return name
	}
	return on.Canonical()
}

func param(req soap.Request, i int) string {
	if i < len(req.Params) {
		return req.Params[i].Text
	}
	return ""
}

// ApplicationMBean is the name the fake registers for a started application.
func ApplicationMBean(app string) string {
	return "WebSphere:name=" + app + ",process=server1,node=node01,type=Application,cell=cell01"
}

func (s *Server) invoke(req soap.Request) (*soap.Response, error) {
	switch req.Method {
	case "installApplication":
		app := param(req, 1)
		s.emitLocked(task(notification.TaskInstall, notification.StatusInProgress, "ADMA5016I: Installation of "+app+" started."))
		if s.Silent {
			return value(soap.Null())
		}
		if s.InstallFails {
			s.emitLocked(task(notification.TaskInstall, notification.StatusFailed, "ADMA5069E: The installation of application "+app+" failed."))
		} else {
			s.emitLocked(task(notification.TaskInstall, notification.StatusCompleted, "ADMA5013I: Application "+app+" installed successfully."))
		}
		return value(soap.Null())

	case "uninstallApplication":
		app := param(req, 0)
		for name := range s.mbeans {
			if mbean.MustParseObjectName(name).KeyProperty("name") == app {
				delete(s.mbeans, name)
			}
		}
		if !s.Silent {
			s.emitLocked(task(notification.TaskUninstall, notification.StatusCompleted, "ADMA5106I: Application "+app+" uninstalled successfully."))
		}
		return value(soap.Null())

	case "getDistributionStatus":
		n := task(notification.TaskDistributionStatusNode, notification.StatusCompleted, "")
		n.Properties = []soap.Property{{Name: notification.CompositeStatusProperty, Value: s.Distribution}}
		s.emitLocked(n)
		return value(soap.Null())

	case "startApplication":
		app := param(req, 0)
		if s.StartTargets == "" {
			return value(soap.Null())
		}
		s.mbeans[canonical(ApplicationMBean(app))] = map[string]soap.Value{"name": soap.String(app)}
		return value(soap.String(s.StartTargets))
	}
	return nil, fmt.Errorf("unsupported method %s", req.Method)
}

func task(name, status, message string) soap.Notification {
	return soap.Notification{TaskName: name, TaskStatus: status, Message: strings.TrimSpace(message)}
}
