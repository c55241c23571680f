package bump

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"github.com/simplesurance/snapbump/internal/logfields"
)

// templFS contains the web pages.
//
//go:embed pages/templates/*
var templFS embed.FS

//go:embed pages/static/*
var staticFS embed.FS

type HTTPService struct {
	evloop    *EvLoop
	targets   []*Target
	templates *template.Template
	logger    *zap.Logger
}

func NewHTTPService(evloop *EvLoop, targets []*Target) *HTTPService {
	return &HTTPService{
		evloop:  evloop,
		targets: targets,
		templates: template.Must(
			template.New("").ParseFS(templFS, "pages/templates/*"),
		),
		logger: zap.L().Named("http_service"),
	}
}

func (h *HTTPService) RegisterHandlers(mux *http.ServeMux, statusEndpoint, triggerEndpoint string) {
	mux.HandleFunc(statusEndpoint, h.HandlerListFunc)
	mux.HandleFunc(triggerEndpoint, h.HandlerTriggerFunc)

	staticPath := statusEndpoint + "static" + "/"

	mux.Handle(
		staticPath,
		http.StripPrefix(
			staticPath,
			h.HandlerStaticFiles(),
		),
	)
}

func (h *HTTPService) HandlerStaticFiles() http.Handler {
	subFs, err := fs.Sub(staticFS, "pages/static")
	if err != nil {
		h.logger.Panic("creating sub fs for static http files failed", zap.Error(err))
	}

	return http.FileServer(http.FS(subFs))
}

func (h *HTTPService) HandlerListFunc(respWr http.ResponseWriter, _ *http.Request) {
	data := h.httpListData()

	err := h.templates.ExecuteTemplate(respWr, "list.html.tmpl", data)
	if err != nil {
		h.logger.Info("applying template and sending back result failed", zap.Error(err))
		http.Error(respWr, err.Error(), http.StatusInternalServerError)
		return
	}
}

// HandlerTriggerFunc schedules an update run.
// The run can be restricted to architectures given as repeated "arch" query
// parameters.
// It responds with 202 when a run was scheduled and with 409 when a run is
// already scheduled.
func (h *HTTPService) HandlerTriggerFunc(respWr http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(respWr, "only POST requests are supported", http.StatusMethodNotAllowed)
		return
	}

	architectures := req.URL.Query()["arch"]

	if !h.evloop.Trigger(architectures) {
		http.Error(respWr, "an update run is already scheduled", http.StatusConflict)
		return
	}

	h.logger.Info(
		"update run triggered via http",
		logfields.Event("http_trigger_received"),
		zap.Strings("architectures", architectures),
	)

	respWr.WriteHeader(http.StatusAccepted)

	if _, err := respWr.Write([]byte("update run scheduled\n")); err != nil {
		h.logger.Info("sending http response failed", zap.Error(err))
	}
}
