// Package web serves the HTML front end for shaping, resetting and
// inspecting interfaces.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"tcshaper/internal/traffic"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Controller is the operation set the UI drives.
type Controller interface {
	Interfaces(ctx context.Context) ([]string, error)
	CurrentConfig(ctx context.Context, iface string) traffic.InterfaceConfig
	Apply(ctx context.Context, req traffic.ShapingRequest) (string, error)
	ResetInterface(ctx context.Context, iface string) traffic.ResetResult
	Clear(ctx context.Context, iface string) (string, error)
	Status(ctx context.Context, iface string) (string, error)
}

// Handler provides the UI routes.
type Handler struct {
	ctl    Controller
	logger *slog.Logger
}

// NewHandler creates a UI handler backed by ctl.
func NewHandler(ctl Controller, logger *slog.Logger) *Handler {
	return &Handler{ctl: ctl, logger: logger}
}

// RegisterRoutes registers the UI routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/reset", h.handleReset)
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/clear", h.handleClear)
}

type protocolOption struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Interfaces []string
	Interface  string
	Config     traffic.InterfaceConfig
	Protocols  []protocolOption
	Output     string
	Error      string
}

func protocolOptions(selected string) []protocolOption {
	opts := []protocolOption{
		{Value: "", Label: "All"},
		{Value: "tcp", Label: "TCP"},
		{Value: "udp", Label: "UDP"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == selected
	}
	return opts
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.showIndex(w, r)
	case http.MethodPost:
		h.applyIndex(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) showIndex(w http.ResponseWriter, r *http.Request) {
	ifaces, err := h.ctl.Interfaces(r.Context())
	if err != nil {
		h.fail(w, "list interfaces", err, http.StatusInternalServerError)
		return
	}

	iface := r.URL.Query().Get("iface")
	if !slices.Contains(ifaces, iface) {
		iface = ""
		if len(ifaces) > 0 {
			iface = ifaces[0]
		}
	}

	data := pageData{Interfaces: ifaces, Interface: iface}
	if iface != "" {
		data.Config = h.ctl.CurrentConfig(r.Context(), iface)
	}
	data.Config.Interface = iface
	data.Protocols = protocolOptions(data.Config.Protocol)
	h.render(w, http.StatusOK, "index.html", data)
}

func (h *Handler) applyIndex(w http.ResponseWriter, r *http.Request) {
	ifaces, err := h.ctl.Interfaces(r.Context())
	if err != nil {
		h.fail(w, "list interfaces", err, http.StatusInternalServerError)
		return
	}

	form := formValues(r)
	data := pageData{
		Interfaces: ifaces,
		Interface:  form.iface,
		Config: traffic.InterfaceConfig{
			Interface: form.iface,
			Rate:      form.rate,
			Loss:      form.loss,
			Duplicate: form.duplicate,
			Delay:     form.delay,
			Protocol:  form.protocol,
		},
	}

	req, err := traffic.NewShapingRequest(form.iface, form.rate, form.loss, form.duplicate, form.delay, form.protocol)
	if err == nil && !slices.Contains(ifaces, req.Interface) {
		err = fmt.Errorf("unknown interface %q", req.Interface)
	}
	if err != nil {
		data.Error = err.Error()
		data.Protocols = protocolOptions(data.Config.Protocol)
		h.render(w, http.StatusBadRequest, "index.html", data)
		return
	}
	data.Config = req.Config()

	status := http.StatusOK
	out, err := h.ctl.Apply(r.Context(), req)
	data.Output = out
	if err != nil {
		status = http.StatusInternalServerError
		data.Error = err.Error()
		h.logError("apply failed", req.Interface, err)
	}
	data.Protocols = protocolOptions(data.Config.Protocol)
	h.render(w, status, "index.html", data)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	iface, ok := h.postedInterface(w, r)
	if !ok {
		return
	}

	result := h.ctl.ResetInterface(r.Context(), iface)
	data := pageData{Interface: iface, Output: result.Output}
	if result.Message != "" {
		if result.HadShaping {
			data.Output = result.Output + "\n" + result.Message
		} else {
			data.Output = result.Message + "\n"
		}
	}
	status := http.StatusOK
	if result.Err != nil {
		status = http.StatusInternalServerError
		data.Error = result.Err.Error()
		h.logError("reset failed", iface, result.Err)
	}
	h.render(w, status, "status.html", data)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	iface, ok := h.postedInterface(w, r)
	if !ok {
		return
	}

	out, err := h.ctl.Status(r.Context(), iface)
	data := pageData{Interface: iface, Output: out}
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
		data.Error = err.Error()
	}
	h.render(w, status, "status.html", data)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	iface, ok := h.postedInterface(w, r)
	if !ok {
		return
	}

	if _, err := h.ctl.Clear(r.Context(), iface); err != nil {
		h.logError("clear failed", iface, err)
		h.render(w, http.StatusInternalServerError, "status.html", pageData{Interface: iface, Error: err.Error()})
		return
	}
	http.Redirect(w, r, "/?iface="+url.QueryEscape(iface), http.StatusSeeOther)
}

// postedInterface reads the interface form field of a POST and checks that
// the interface exists.
func (h *Handler) postedInterface(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	iface := r.PostFormValue("interface")
	if iface == "" {
		http.Error(w, "interface is required", http.StatusBadRequest)
		return "", false
	}
	ifaces, err := h.ctl.Interfaces(r.Context())
	if err != nil {
		h.fail(w, "list interfaces", err, http.StatusInternalServerError)
		return "", false
	}
	if !slices.Contains(ifaces, iface) {
		http.Error(w, fmt.Sprintf("unknown interface %q", iface), http.StatusBadRequest)
		return "", false
	}
	return iface, true
}

type shapingForm struct {
	iface, rate, loss, duplicate, delay, protocol string
}

func formValues(r *http.Request) shapingForm {
	return shapingForm{
		iface:     r.PostFormValue("interface"),
		rate:      r.PostFormValue("rate"),
		loss:      r.PostFormValue("loss"),
		duplicate: r.PostFormValue("duplicate"),
		delay:     r.PostFormValue("delay"),
		protocol:  r.PostFormValue("protocol"),
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		h.logError("render template failed", data.Interface, err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error, status int) {
	h.logError(what+" failed", "", err)
	http.Error(w, fmt.Sprintf("%s: %v", what, err), status)
}

func (h *Handler) logError(msg, iface string, err error) {
	if h.logger == nil {
		return
	}
	attrs := []any{slog.String("error", err.Error())}
	if iface != "" {
		attrs = append(attrs, slog.String("interface", iface))
	}
	h.logger.Error(msg, attrs...)
}
